// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package api serves the operations HTTP surface of serve mode.

Routes:

  - GET /healthz: warehouse connectivity, schema version, row counts per
    table and the latest run
  - GET /metrics: Prometheus exposition
  - GET /api/v1/runs?limit=N: recent run summaries, newest first
  - GET /api/v1/runs/latest: the most recent run summary
  - GET /api/v1/runs/{id}: one run summary

All JSON responses share the Response envelope. The /api/v1 routes are rate
limited per client IP with go-chi/httprate and instrumented with the
request metrics of the metrics package. The API is read-only; runs are
started by the scheduler or the CLI.
*/
package api
