// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marquee/config.yaml",
	"/etc/marquee/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			MoviesPath:  "/data/bronze/tmdb_5000_movies.csv",
			CreditsPath: "/data/bronze/tmdb_5000_credits.csv",
		},
		Silver: SilverConfig{
			Enabled: true,
			Dir:     "/data/silver",
		},
		Warehouse: WarehouseConfig{
			Path:      "/data/marquee.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Pipeline: PipelineConfig{
			Parallel:    true,
			Incremental: true,
			Interval:    6 * time.Hour,
			RunOnStart:  true,
			Timeout:     30 * time.Minute,
		},
		RunLog: RunLogConfig{
			Path:         "/data/runlog",
			HistoryLimit: 100,
		},
		Events: EventsConfig{
			Enabled: false,
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "marquee.build.completed",

			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads defaults, then the config file, then environment
// variables, and validates the result. An empty path means
// CONFIG_PATH or the first existing entry of DefaultConfigPaths.
func LoadWithKoanf(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as
// a single string from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	"movies_path":  "input.movies_path",
	"credits_path": "input.credits_path",

	"silver_enabled": "silver.enabled",
	"silver_dir":     "silver.dir",

	"duckdb_path":       "warehouse.path",
	"duckdb_max_memory": "warehouse.max_memory",
	"duckdb_threads":    "warehouse.threads",

	"pipeline_parallel":     "pipeline.parallel",
	"pipeline_incremental":  "pipeline.incremental",
	"pipeline_interval":     "pipeline.interval",
	"pipeline_run_on_start": "pipeline.run_on_start",
	"pipeline_timeout":      "pipeline.timeout",

	"runlog_path":          "runlog.path",
	"runlog_in_memory":     "runlog.in_memory",
	"runlog_history_limit": "runlog.history_limit",

	"events_enabled": "events.enabled",
	"nats_url":       "events.nats_url",
	"events_topic":   "events.topic",

	"events_breaker_threshold": "events.breaker_threshold",
	"events_breaker_timeout":   "events.breaker_timeout",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_rate_limit":       "server.rate_limit",
	"cors_origins":          "server.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unknown names return "" and are ignored, so unrelated variables in the
// environment never leak into the configuration.
//
//	DUCKDB_PATH       -> warehouse.path
//	PIPELINE_INTERVAL -> pipeline.interval
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
