// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures the middleware around the ops routes.
type RouterOptions struct {
	// RateLimit is requests per minute per client IP on /api/v1. Zero
	// disables limiting.
	RateLimit   int
	CORSOrigins []string
}

// NewRouter builds the ops routes.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(opts.CORSOrigins))

	r.With(PrometheusMetrics).Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(opts.RateLimit))
		r.Use(PrometheusMetrics)

		r.Get("/runs", h.Runs)
		r.Get("/runs/latest", h.LatestRun)
		r.Get("/runs/{id}", h.Run)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}
