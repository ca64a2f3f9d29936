// db/client.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/awwbot/channelstate"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver registration
)

const createKVTableSQL = `
CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// Client is a DuckDB-backed key-value store kept in a single database file
// inside dir.
type Client struct {
	DB  *sql.DB
	dir string
}

// NewClient creates a new DuckDB client using the specified directory.
// The database file ("duck.db") lives inside the directory, which is created
// if missing.
func NewClient(dir string) (*Client, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		info, err = os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to stat directory after creation: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	dbPath := filepath.Join(dir, "duck.db?threads=4")
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &Client{
		DB:  db,
		dir: dir,
	}, nil
}

// Start pings the database and makes sure the kv_store table exists.
func (c *Client) Start(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}
	if _, err := c.DB.ExecContext(ctx, createKVTableSQL); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

// Stop closes the DuckDB connection.
func (c *Client) Stop() error {
	return c.DB.Close()
}

// Conn returns the underlying database connection for running queries directly.
func (c *Client) Conn() *sql.DB {
	return c.DB
}

// Get returns the value stored under key, or channelstate.ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := c.DB.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, channelstate.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put replaces the value stored under key.
func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.DB.ExecContext(ctx, `
	INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}
