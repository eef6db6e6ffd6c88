// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
)

// MemoryPath opens a private in-memory warehouse.
const MemoryPath = ":memory:"

// DB wraps the DuckDB warehouse connection.
type DB struct {
	conn   *sql.DB
	cfg    *config.WarehouseConfig
	logger zerolog.Logger
}

// New opens the warehouse at cfg.Path and applies pending migrations.
func New(cfg *config.WarehouseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != MemoryPath && cfg.Path != "" {
		// 0750: owner rwx, group rx (gosec G301)
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s", cfg.Path, numThreads, cfg.MaxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return newDB(conn, cfg)
}

// newDB finishes setup on an open connection.
func newDB(conn *sql.DB, cfg *config.WarehouseConfig) (*DB, error) {
	db := &DB{
		conn:   conn,
		cfg:    cfg,
		logger: logging.WithComponent("database"),
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize applies migrations and flushes the WAL.
func (db *DB) initialize() error {
	if err := db.runVersionedMigrations(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}
	return nil
}

// Close checkpoints and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Path returns the warehouse file path.
func (db *DB) Path() string {
	return db.cfg.Path
}
