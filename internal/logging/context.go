// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	runIDKey         contextKey = "run_id"
	correlationIDKey contextKey = "correlation_id"
	loggerKey        contextKey = "logger"
)

// GenerateRunID returns a new pipeline run id (a full UUID).
func GenerateRunID() string {
	return uuid.New().String()
}

// GenerateCorrelationID returns a short id for HTTP requests.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithRunID stores a pipeline run id in ctx.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run id stored in ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithCorrelationID stores a request correlation id in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation id stored in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored in ctx or the global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger carrying the run and correlation ids found in ctx.
//
//	logging.Ctx(ctx).Info().Int("facts", n).Msg("Build finished")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()
	if id := RunIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("run_id", id)
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	l := logCtx.Logger()
	return &l
}
