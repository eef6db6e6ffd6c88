// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package config loads Marquee's configuration.
//
// Values are layered with koanf, each layer overriding the previous one:
//
//  1. Built-in defaults (defaultConfig)
//  2. An optional YAML file (--config flag, CONFIG_PATH, or DefaultConfigPaths)
//  3. Environment variables (see envTransformFunc for the accepted names)
//
// Example config.yaml:
//
//	input:
//	  movies_path: /data/bronze/tmdb_5000_movies.csv
//	  credits_path: /data/bronze/tmdb_5000_credits.csv
//	silver:
//	  enabled: true
//	  dir: /data/silver
//	warehouse:
//	  path: /data/marquee.duckdb
//	  max_memory: 2GB
//	pipeline:
//	  parallel: true
//	  interval: 6h
//
// The loaded Config is validated with struct tags (internal/validation)
// plus the cross-field checks in config_validate.go.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Input     InputConfig     `koanf:"input"`
	Silver    SilverConfig    `koanf:"silver"`
	Warehouse WarehouseConfig `koanf:"warehouse"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	RunLog    RunLogConfig    `koanf:"runlog"`
	Events    EventsConfig    `koanf:"events"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// InputConfig locates the two raw CSV files.
type InputConfig struct {
	MoviesPath  string `koanf:"movies_path" validate:"required"`
	CreditsPath string `koanf:"credits_path" validate:"required"`
}

// SilverConfig controls the cleaned Parquet artifact.
type SilverConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// WarehouseConfig holds DuckDB settings for the warehouse store.
type WarehouseConfig struct {
	Path      string `koanf:"path" validate:"required,filepath_dir"`
	MaxMemory string `koanf:"max_memory" validate:"required,memsize"`
	Threads   int    `koanf:"threads" validate:"gte=0,lte=256"` // 0 = runtime.NumCPU()
}

// PipelineConfig controls how builds run.
type PipelineConfig struct {
	// Parallel builds independent dimensions concurrently.
	Parallel bool `koanf:"parallel"`

	// Incremental seeds each build with the persisted warehouse state so
	// surrogate keys stay stable across runs. When false every run starts
	// from empty key counters and replaces the warehouse wholesale.
	Incremental bool `koanf:"incremental"`

	// Interval between scheduled runs in serve mode.
	Interval time.Duration `koanf:"interval"`

	// RunOnStart triggers a run as soon as serve mode starts.
	RunOnStart bool `koanf:"run_on_start"`

	// Timeout bounds a single run; 0 disables it.
	Timeout time.Duration `koanf:"timeout"`
}

// RunLogConfig controls the run ledger.
type RunLogConfig struct {
	Path         string `koanf:"path"`
	InMemory     bool   `koanf:"in_memory"`
	HistoryLimit int    `koanf:"history_limit" validate:"gte=1"`
}

// EventsConfig controls build-completed notifications.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic"`

	// BreakerThreshold consecutive publish failures open the circuit for
	// BreakerTimeout, during which publishes fail fast.
	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"gte=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// ServerConfig holds ops HTTP server settings for serve mode.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"` // requests per minute per IP, 0 disables
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from the default locations.
func Load() (*Config, error) {
	return LoadWithKoanf("")
}
