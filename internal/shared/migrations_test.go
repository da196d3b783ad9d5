package shared

import (
	"errors"
	"strings"
	"testing"
)

func TestMigrations(t *testing.T) {
	t.Run("Load", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}
		if migrations[0].Version != 0 || migrations[0].Name != "create_tables" {
			t.Errorf("unexpected first migration: %d %q", migrations[0].Version, migrations[0].Name)
		}
		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("Apply And Roll Back", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if v, err := SchemaVersion(db); err != nil || v != -1 {
			t.Fatalf("expected -1 for a fresh database, got %d, %v", v, err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		for _, table := range []string{"jobs", "tracks", "jobs_sequence", "tracks_sequence"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s should exist after migrations: %v", table, err)
			}
		}

		var name string
		if err := db.QueryRow(`SELECT name FROM schema_migrations WHERE version = 0`).Scan(&name); err != nil || name != "create_tables" {
			t.Errorf("expected recorded migration name, got %q, %v", name, err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to roll back: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM jobs LIMIT 1"); err == nil {
			t.Error("expected jobs table to be dropped")
		}
		if v, err := SchemaVersion(db); err != nil || v != -1 {
			t.Errorf("expected -1 after rolling back everything, got %d, %v", v, err)
		}

		if err := RollbackMigration(db); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput with nothing to roll back, got %v", err)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		for range 2 {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to count migrations: %v", err)
		}
		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
		}
	})
}

func TestStripComments(t *testing.T) {
	script := "-- header\nCREATE TABLE a (id INTEGER); -- trailing\n\n  INSERT INTO a VALUES (1);"
	got := stripComments(script)
	if strings.Contains(got, "--") || strings.Contains(got, "header") {
		t.Errorf("comments not stripped: %q", got)
	}
	if !strings.Contains(got, "CREATE TABLE a (id INTEGER);") || !strings.Contains(got, "INSERT INTO a VALUES (1);") {
		t.Errorf("statements lost: %q", got)
	}
}
