// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package runlog keeps the history of pipeline runs.
//
// Every run stores its RunSummary, once when it starts and again when it
// finishes. Summaries are ordered by start time; Latest and List return the
// newest first.
package runlog

import (
	"context"
	"errors"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/models"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Store persists run summaries.
type Store interface {
	// Save inserts or replaces the summary for s.RunID.
	Save(ctx context.Context, s *models.RunSummary) error
	// Get returns the summary of one run.
	Get(ctx context.Context, runID string) (*models.RunSummary, error)
	// Latest returns the most recently started run, or nil if none.
	Latest(ctx context.Context) (*models.RunSummary, error)
	// List returns up to limit summaries, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*models.RunSummary, error)
	// Prune keeps the newest keep summaries and returns how many it removed.
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}

// Open returns the store described by cfg.
func Open(cfg *config.RunLogConfig) (Store, error) {
	store, err := OpenBadger(cfg.Path, cfg.InMemory)
	if err != nil {
		return nil, err
	}
	return store, nil
}
