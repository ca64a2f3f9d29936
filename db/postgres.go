package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brensch/awwbot/channelstate"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createPostgresKVTableSQL = `
CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresKV is the same key-value store as Client, kept in Postgres for
// hosts without a writable disk.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV connects to dsn, pings it and creates the kv_store table.
func NewPostgresKV(ctx context.Context, dsn string) (*PostgresKV, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	// One run at a time touches one key; a small pool is plenty.
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createPostgresKVTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	return &PostgresKV{pool: pool}, nil
}

// Get returns the value stored under key, or channelstate.ErrNotFound.
func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, channelstate.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put replaces the value stored under key.
func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
	INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Stop closes the pool.
func (p *PostgresKV) Stop() error {
	p.pool.Close()
	return nil
}
