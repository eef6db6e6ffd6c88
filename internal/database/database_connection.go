// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"runtime"
	"strings"
	"time"
)

// configureConnectionPool sizes the pool for parallel reads. Loads use a
// single transaction and so a single connection.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// isConstraintError reports whether err is a DuckDB constraint violation.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") ||
		strings.Contains(msg, "violates foreign key") ||
		strings.Contains(msg, "Duplicate key")
}

// isTransactionConflict reports whether err is a DuckDB write conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}
