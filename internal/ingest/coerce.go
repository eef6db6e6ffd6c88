// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order for release dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
}

// cleanText trims text; the empty string is the absent-value sentinel.
func cleanText(s string) string {
	return strings.TrimSpace(s)
}

// parseIdentity parses a movie id. Only positive integers are identities.
func parseIdentity(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Some exports write ids as floats ("19995.0"); only a zero fraction
	// is accepted, so "1e3" or "10.5" are not identities.
	if whole, frac, found := strings.Cut(s, "."); found {
		if frac == "" || strings.Trim(frac, "0") != "" {
			return 0, false
		}
		s = whole
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, id > 0
}

// parseInt returns 0 for empty text. ok is false when non-empty text does
// not parse.
func parseInt(s string) (v int64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, ok := parseFloat(s)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if !ok || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseFloat returns 0 for empty text. NaN and infinities are malformed.
func parseFloat(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDate returns nil for empty text. ok is false when non-empty text
// matches no known layout.
func parseDate(s string) (d *time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day, true
		}
	}
	return nil, false
}

// languageCode normalizes an ISO 639-1 code.
func languageCode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// countryCode normalizes an ISO 3166-1 code.
func countryCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
