package shared

import (
	"path/filepath"
	"testing"
)

func TestDatabase(t *testing.T) {
	t.Run("Creates Parent Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "crossfade.db")
		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to migrate file database: %v", err)
		}
		if v, err := SchemaVersion(db); err != nil || v < 0 {
			t.Errorf("expected an applied schema, got %d, %v", v, err)
		}
	})

	t.Run("Memory Is Single Connection", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected 1 open connection, got %d", got)
		}
	})

	t.Run("ConfigureDatabase", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "pool.db"))
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		ConfigureDatabase(db, 4, 2)
		if got := db.Stats().MaxOpenConnections; got != 4 {
			t.Errorf("expected 4 open connections, got %d", got)
		}

		ConfigureDatabase(db, 0, 0)
		if got := db.Stats().MaxOpenConnections; got != 4 {
			t.Errorf("expected zero to keep the limit, got %d", got)
		}
	})
}
