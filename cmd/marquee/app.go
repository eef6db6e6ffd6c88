// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/database"
	"github.com/tomtom215/marquee/internal/events"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/pipeline"
	"github.com/tomtom215/marquee/internal/runlog"
)

// app holds the opened components shared by the commands.
type app struct {
	cfg    *config.Config
	db     *database.DB
	runs   runlog.Store
	events events.Sink
	runner *pipeline.Runner
}

// openApp opens the warehouse, the run ledger and the event sink. Whatever
// was opened is closed again when a later step fails.
func openApp(cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
			a = nil
		}
	}()

	if a.db, err = database.New(&cfg.Warehouse); err != nil {
		return a, fmt.Errorf("open warehouse: %w", err)
	}
	if a.runs, err = runlog.Open(&cfg.RunLog); err != nil {
		return a, fmt.Errorf("open run log: %w", err)
	}
	if a.events, err = events.Open(&cfg.Events); err != nil {
		return a, fmt.Errorf("open events: %w", err)
	}

	a.runner = pipeline.NewRunner(
		ingest.NewCSVSource(cfg.Input.MoviesPath, cfg.Input.CreditsPath),
		ingest.NewSilverStore(),
		a.db,
		a.runs,
		a.events,
		pipeline.OptionsFromConfig(cfg),
	)

	logging.Info().
		Str("warehouse", a.db.Path()).
		Bool("incremental", cfg.Pipeline.Incremental).
		Bool("parallel", cfg.Pipeline.Parallel).
		Bool("events", cfg.Events.Enabled).
		Msg("Marquee initialized")
	return a, nil
}

// Close releases every opened component and combines their errors.
func (a *app) Close() error {
	var err error
	if a.events != nil {
		err = multierr.Append(err, a.events.Close())
	}
	if a.runs != nil {
		err = multierr.Append(err, a.runs.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}
