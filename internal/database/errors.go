// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/marquee/internal/logging"
)

// ErrLoadFailure matches every error returned by a failed Load.
var ErrLoadFailure = errors.New("warehouse load failed")

// LoadError describes where a load failed. The transaction has been rolled
// back when it is returned.
type LoadError struct {
	Stage string // begin, delete, insert, history, commit
	Table string
	Err   error
}

func newLoadError(stage, table string, err error) *LoadError {
	return &LoadError{Stage: stage, Table: table, Err: err}
}

func (e *LoadError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s %s: %v", ErrLoadFailure, e.Stage, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrLoadFailure, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrLoadFailure.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailure
}

// Constraint reports whether the failure was a constraint violation.
func (e *LoadError) Constraint() bool {
	return isConstraintError(e.Err)
}

// Conflict reports whether the failure was a concurrent write conflict.
func (e *LoadError) Conflict() bool {
	return isTransactionConflict(e.Err)
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
