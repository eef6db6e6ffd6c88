// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
)

// Response is the envelope of every JSON response.
type Response struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the machine-readable part of an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sanitizeLogValue escapes control characters so request values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, response *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, data any, started time.Time) {
	respondJSON(w, http.StatusOK, &Response{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}
	respondJSON(w, status, &Response{
		Status:   "error",
		Metadata: Metadata{Timestamp: time.Now()},
		Error:    &APIError{Code: code, Message: message},
	})
}
