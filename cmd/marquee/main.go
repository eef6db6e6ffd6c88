// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package main is the marquee command.
//
// Marquee turns the TMDB movies and credits CSV files into a DuckDB star
// schema: seven dimensions with stable surrogate keys, a release fact table
// and a movie-genre bridge.
//
// # Commands
//
//	marquee run      ingest the CSV files, build and load the warehouse once
//	marquee replay   rebuild from the silver Parquet file instead of the CSVs
//	marquee serve    run on a schedule and serve /healthz, /metrics and /api/v1/runs
//	marquee status   print the latest run summary as JSON
//
// # Configuration
//
// Settings are layered with koanf (highest priority wins):
//   - environment variables such as MOVIES_PATH, WAREHOUSE_PATH, PIPELINE_INTERVAL
//   - the YAML file given by --config or CONFIG_PATH, else ./config.yaml
//   - built-in defaults
//
// # Exit Status
//
// run and replay exit 1 when the run fails. Data problems in individual
// records never fail a run; they are counted in the summary. A failed
// warehouse load does, and leaves the previous warehouse contents intact.
//
// # Signals
//
// SIGINT and SIGTERM cancel the active run before commit and stop serve mode
// gracefully.
package main

import (
	"os"

	"github.com/tomtom215/marquee/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Err(err).Msg("marquee failed")
		os.Exit(1)
	}
}
