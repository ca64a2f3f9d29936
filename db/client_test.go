package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/brensch/awwbot/channelstate"
)

func TestClientGetPut(t *testing.T) {
	ctx := context.Background()

	client, err := NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Stop() })

	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := client.Get(ctx, "channel_list"); !errors.Is(err, channelstate.ErrNotFound) {
		t.Fatalf("Get on empty store err = %v, want ErrNotFound", err)
	}

	if err := client.Put(ctx, "channel_list", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := client.Put(ctx, "channel_list", []byte(`[{"id":"2"}]`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, err := client.Get(ctx, "channel_list")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[{"id":"2"}]` {
		t.Fatalf("Get = %s, want last write", got)
	}
}

func TestNewClientRejectsFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notadir")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.Close()

	if _, err := NewClient(f.Name()); err == nil {
		t.Fatal("NewClient on a file should fail")
	}
}

// TestPostgresKVIntegration runs against a real database.
// Set POSTGRES_TEST_DSN to run it.
func TestPostgresKVIntegration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()

	kv, err := NewPostgresKV(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresKV: %v", err)
	}
	t.Cleanup(func() { kv.Stop() })

	key := "test_" + t.Name()
	if err := kv.Put(ctx, key, []byte("a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, key, []byte("b")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "b" {
		t.Fatalf("Get = %q, want b", got)
	}
	if _, err := kv.Get(ctx, key+"_missing"); !errors.Is(err, channelstate.ErrNotFound) {
		t.Fatalf("Get missing err = %v, want ErrNotFound", err)
	}
}
