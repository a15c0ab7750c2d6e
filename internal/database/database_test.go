package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "world.db")

	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := (Checker{DB: db}).Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(context.Background(), Memory)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("MaxOpenConnections = %d, want 1", got)
	}
}
