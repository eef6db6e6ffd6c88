// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package warehouse

import (
	"strconv"
	"strings"

	"github.com/tomtom215/marquee/internal/models"
)

// NormalizeName returns the natural key for a named entity: lower-cased,
// trimmed, with internal whitespace runs collapsed to one space.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MovieKey returns the natural key of a movie.
func MovieKey(sourceID int64) string {
	return strconv.FormatInt(sourceID, 10)
}

// LanguageKey returns the natural key for an ISO 639-1 code.
func LanguageKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CountryKey returns the natural key for an ISO 3166-1 code.
func CountryKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// orUnknown maps an empty natural key to the sentinel.
func orUnknown(nk string) string {
	if nk == "" {
		return models.UnknownKey
	}
	return nk
}
