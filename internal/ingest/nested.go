// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// nestedEntry is one element of a serialized list field. Plain string
// elements only fill Name.
type nestedEntry struct {
	Name          string `json:"name"`
	Job           string `json:"job"`
	ISO31661      string `json:"iso_3166_1"`
	ISO6391       string `json:"iso_639_1"`
	OriginCountry string `json:"origin_country"`
}

// parseNested decodes a list field. Empty text is an empty list. Text that
// is not JSON is retried with single quotes replaced by double quotes.
func parseNested(text string) ([]nestedEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	entries, err := decodeNested([]byte(text))
	if err == nil {
		return entries, nil
	}
	if strings.ContainsRune(text, '\'') {
		if entries, retryErr := decodeNested([]byte(strings.ReplaceAll(text, "'", `"`))); retryErr == nil {
			return entries, nil
		}
	}
	return nil, err
}

func decodeNested(text []byte) ([]nestedEntry, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(text, &elems); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}

	out := make([]nestedEntry, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		switch {
		case len(elem) == 0 || bytes.Equal(elem, []byte("null")):
			continue
		case elem[0] == '"':
			var name string
			if err := json.Unmarshal(elem, &name); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, nestedEntry{Name: name})
		case elem[0] == '{':
			var entry nestedEntry
			if err := json.Unmarshal(elem, &entry); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, entry)
		default:
			return nil, fmt.Errorf("element %d: unsupported value %s", i, elem)
		}
	}
	return out, nil
}

// names returns the trimmed non-empty names in list order.
func names(entries []nestedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if n := cleanText(e.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// firstDirector returns the first crew member whose job is Director.
func firstDirector(crew []nestedEntry) string {
	for _, member := range crew {
		if !strings.EqualFold(strings.TrimSpace(member.Job), "director") {
			continue
		}
		if name := cleanText(member.Name); name != "" {
			return name
		}
	}
	return ""
}
