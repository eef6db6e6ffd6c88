// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("table", "dim_genre").Msg("rows loaded")

	output := buf.String()
	if !strings.Contains(output, "rows loaded") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"table":"dim_genre"`) {
		t.Errorf("expected field in output, got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected level in output, got: %s", output)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("hidden")
	Warn().Msg("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info event should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn event should be written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	if !ValidLevel("Debug") {
		t.Error("ValidLevel(Debug) = false")
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(verbose) = true")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	l := WithComponent("ingest")
	l.Info().Msg("started")

	if !strings.Contains(buf.String(), `"component":"ingest"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}
