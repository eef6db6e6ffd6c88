// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"fmt"
	"time"
)

// Migration is a versioned schema change. Migrations are append-only.
type Migration struct {
	Version     int
	Name        string
	Description string
	Statements  []string
	AppliedAt   time.Time // populated on query
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// getMigrations returns all migrations in version order.
func getMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "star_schema", Description: "Dimension, fact and bridge tables with indexes", Statements: starSchema},
		{Version: 2, Name: "load_history", Description: "Record each committed load", Statements: loadHistorySchema},
	}
}

func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeQuietly(rows)

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// runVersionedMigrations applies each pending migration in its own
// transaction together with its schema_migrations row.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range getMigrations() {
		if _, exists := applied[m.Version]; exists {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		newMigrations++
	}

	if newMigrations > 0 {
		db.logger.Info().Int("applied", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration v%d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error().Err(rbErr).AnErr("original_error", err).Msg("Migration rollback failed")
			}
		}
	}()

	for _, stmt := range m.Statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
		m.Version, m.Name, m.Description); err != nil {
		return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
