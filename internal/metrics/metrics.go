// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package metrics defines Marquee's Prometheus instrumentation: pipeline
// runs and stages, record quality, warehouse tables, DuckDB statements,
// event publishing and the ops HTTP surface. Metrics register on the
// default registry through promauto and are served at /metrics.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/marquee/internal/models"
)

var (
	// Pipeline runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_runs_total",
			Help: "Total number of pipeline runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marquee_run_duration_seconds",
			Help:    "Duration of complete pipeline runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "read", "clean", "silver", "prior", "build", "load"
	)

	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		},
	)

	// Record quality
	RecordsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_records_read_total",
			Help: "Raw records read by stream",
		},
		[]string{"stream"},
	)

	RecordsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_records_cleaned_total",
			Help: "Movie records that passed cleaning",
		},
	)

	RecordIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_record_issues_total",
			Help: "Data quality issues by kind",
		},
		[]string{"kind"},
	)

	// Warehouse
	DimensionRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_dimension_rows_total",
			Help: "Dimension rows resolved by builds, by outcome (inserted or reused)",
		},
		[]string{"dimension", "outcome"},
	)

	TableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_table_rows",
			Help: "Rows per warehouse table after the last successful load",
		},
		[]string{"table"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB statements in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_duckdb_query_errors_total",
			Help: "DuckDB statement errors",
		},
		[]string{"operation", "table"},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_events_published_total",
			Help: "Build events published by result",
		},
		[]string{"result"},
	)

	EventBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_events_breaker_state",
			Help: "Event publisher circuit state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Ops API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_api_request_duration_seconds",
			Help:    "Duration of ops API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_api_active_requests",
			Help: "Ops API requests in flight",
		},
	)
)

// RecordStage observes the duration of one pipeline stage.
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDBQuery observes a DuckDB statement and counts its failure.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordEventPublish counts a publish attempt.
func RecordEventPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("error").Inc()
		return
	}
	EventsPublished.WithLabelValues("ok").Inc()
}

// SetEventBreakerState reports the publisher circuit state.
func SetEventBreakerState(state int) {
	EventBreakerState.Set(float64(state))
}

// RecordAPIRequest observes an ops API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordRun exports the counters of a finished run summary.
func RecordRun(s *models.RunSummary) {
	if s == nil {
		return
	}
	RunsTotal.WithLabelValues(s.Mode, string(s.Status)).Inc()
	RunDuration.Observe(time.Duration(s.DurationMs * int64(time.Millisecond)).Seconds())

	RecordsRead.WithLabelValues(models.StreamMovies).Add(float64(s.RecordsRead))
	RecordsRead.WithLabelValues(models.StreamCredits).Add(float64(s.CreditsRead))
	RecordsCleaned.Add(float64(s.RecordsCleaned))
	for kind, n := range s.Rejections {
		if n > 0 {
			RecordIssues.WithLabelValues(string(kind)).Add(float64(n))
		}
	}

	for table, n := range s.Inserted {
		if strings.HasPrefix(table, "dim_") {
			DimensionRows.WithLabelValues(strings.TrimPrefix(table, "dim_"), "inserted").Add(float64(n))
		}
	}
	for table, n := range s.Reused {
		DimensionRows.WithLabelValues(strings.TrimPrefix(table, "dim_"), "reused").Add(float64(n))
	}

	if s.Status != models.RunSuccess {
		return
	}
	for table, n := range s.RowCounts {
		TableRows.WithLabelValues(table).Set(float64(n))
	}
	LastSuccessTimestamp.Set(float64(s.FinishedAt.Unix()))
}
