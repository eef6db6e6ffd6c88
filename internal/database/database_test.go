// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tomtom215/marquee/internal/config"
)

func testConfig(path string) *config.WarehouseConfig {
	return &config.WarehouseConfig{Path: path, MaxMemory: "512MB", Threads: 1}
}

// setupTestDB opens an in-memory warehouse that is closed with the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(testConfig(MemoryPath))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func TestNew_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if want := len(getMigrations()); version != want {
		t.Errorf("SchemaVersion = %d, want %d", version, want)
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts: %v", err)
	}
	if len(counts) != len(Tables()) {
		t.Errorf("TableCounts has %d tables, want %d", len(counts), len(Tables()))
	}
	for table, n := range counts {
		if n != 0 {
			t.Errorf("%s has %d rows in a new warehouse", table, n)
		}
	}

	info, err := db.LastLoad(ctx)
	if err != nil || info != nil {
		t.Errorf("LastLoad = %+v, %v; want nil, nil", info, err)
	}
}

func TestNew_ReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "marquee.duckdb")

	db, err := New(testConfig(path))
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path = %q", db.Path())
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = New(testConfig(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer closeQuietly(db)

	version, err := db.SchemaVersion(context.Background())
	if err != nil || version != len(getMigrations()) {
		t.Errorf("SchemaVersion after reopen = %d, %v", version, err)
	}
}

func TestTables_Order(t *testing.T) {
	tables := Tables()
	if tables[0] != "dim_movie" || tables[len(tables)-2] != "fact_movie_release" || tables[len(tables)-1] != "bridge_movie_genre" {
		t.Errorf("Tables() = %v", tables)
	}
}
