// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/runlog"
	"github.com/tomtom215/marquee/internal/validation"
)

// Warehouse is the read side of the warehouse store used for health.
type Warehouse interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// RunReader reads the run ledger.
type RunReader interface {
	Get(ctx context.Context, runID string) (*models.RunSummary, error)
	Latest(ctx context.Context) (*models.RunSummary, error)
	List(ctx context.Context, limit int) ([]*models.RunSummary, error)
}

// Handler serves the ops endpoints.
type Handler struct {
	warehouse Warehouse
	runs      RunReader
	version   string
	startTime time.Time
}

// NewHandler returns a handler. version is reported by /healthz.
func NewHandler(wh Warehouse, runs RunReader, version string) *Handler {
	return &Handler{warehouse: wh, runs: runs, version: version, startTime: time.Now()}
}

// HealthStatus is the /healthz payload.
type HealthStatus struct {
	Status             string             `json:"status"`
	Version            string             `json:"version"`
	WarehouseConnected bool               `json:"warehouse_connected"`
	SchemaVersion      int                `json:"schema_version"`
	Tables             map[string]int64   `json:"tables,omitempty"`
	LastRun            *models.RunSummary `json:"last_run,omitempty"`
	Uptime             float64            `json:"uptime_seconds"`
}

// Health reports warehouse connectivity and the latest run. It answers 503
// when the warehouse cannot be reached.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	health := HealthStatus{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}

	if err := h.warehouse.Ping(ctx); err != nil {
		health.Status = "unavailable"
		respondJSON(w, http.StatusServiceUnavailable, &Response{
			Status:   "error",
			Data:     health,
			Metadata: Metadata{Timestamp: time.Now()},
			Error:    &APIError{Code: "WAREHOUSE_UNAVAILABLE", Message: "Warehouse is not reachable"},
		})
		return
	}
	health.WarehouseConnected = true

	if v, err := h.warehouse.SchemaVersion(ctx); err == nil {
		health.SchemaVersion = v
	} else {
		health.Status = "degraded"
	}
	if counts, err := h.warehouse.TableCounts(ctx); err == nil {
		health.Tables = counts
	} else {
		health.Status = "degraded"
	}

	if h.runs != nil {
		last, err := h.runs.Latest(ctx)
		if err != nil {
			health.Status = "degraded"
		}
		health.LastRun = last
		if last != nil && last.Status == models.RunFailed {
			health.Status = "degraded"
		}
	}

	respondData(w, health, start)
}

// runsRequest bounds the list query.
type runsRequest struct {
	Limit int `validate:"gte=1,lte=500"`
}

// Runs lists recent run summaries, newest first. limit defaults to 20.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := runsRequest{Limit: 20}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		req.Limit = n
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	runs, err := h.runs.List(r.Context(), req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RUNLOG_ERROR", "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []*models.RunSummary{}
	}
	respondData(w, runs, start)
}

// LatestRun returns the most recent run summary, or 404 before the first run.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := h.runs.Latest(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RUNLOG_ERROR", "Failed to read latest run", err)
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No runs recorded", nil)
		return
	}
	respondData(w, run, start)
}

// Run returns one run summary by id.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := h.runs.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, runlog.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Run not found", nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "RUNLOG_ERROR", "Failed to read run", err)
	default:
		respondData(w, run, start)
	}
}
