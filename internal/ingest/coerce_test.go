// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"math"
	"reflect"
	"testing"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"", 0, true},
		{"  ", 0, true},
		{"237000000", 237000000, true},
		{" 42 ", 42, true},
		{"1.5e3", 1500, true},
		{"-3", -3, true},
		{"abc", 0, false},
		{"1e400", 0, false},
		{"9223372036854775807", math.MaxInt64, true},
		{"9223372036854775808", 0, false},
		{"9.3e18", 0, false},
		{"-9223372036854775808", math.MinInt64, true},
		{"-9.3e18", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"19995", 19995, true},
		{" 862 ", 862, true},
		{"19995.0", 19995, true},
		{"19995.000", 19995, true},
		{"", 0, false},
		{"0", 0, false},
		{"-5", -5, false},
		{"1e3", 0, false},
		{"1000.5", 0, false},
		{"1000.", 0, false},
		{".0", 0, false},
		{"abc", 0, false},
		{"9223372036854775808", 0, false},
		{"9223372036854775808.0", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseIdentity(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("parseIdentity(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"", 0, true},
		{"150.437577", 150.437577, true},
		{"7", 7, true},
		{"NaN", 0, false},
		{"+Inf", 0, false},
		{"x", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseFloat(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseFloat(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"", "", true},
		{"2009-12-10", "2009-12-10", true},
		{"2009/12/10", "2009-12-10", true},
		{"12/10/2009", "2009-12-10", true},
		{"2009-12-10T22:00:00-05:00", "2009-12-10", true},
		{"2009-13-40", "", false},
		{"soon", "", false},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.in)
		if ok != tt.wantOK {
			t.Errorf("parseDate(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		var s string
		if got != nil {
			s = got.Format("2006-01-02")
			if got.Location().String() != "UTC" || got.Hour() != 0 {
				t.Errorf("parseDate(%q) = %v, want UTC midnight", tt.in, got)
			}
		}
		if s != tt.want {
			t.Errorf("parseDate(%q) = %q, want %q", tt.in, s, tt.want)
		}
	}
}

func TestParseNested(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []nestedEntry
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"empty list", "[]", []nestedEntry{}, false},
		{"objects", `[{"id": 1, "name": "Drama"}]`, []nestedEntry{{Name: "Drama"}}, false},
		{"strings", `["a", "b"]`, []nestedEntry{{Name: "a"}, {Name: "b"}}, false},
		{"single quotes", `[{'name': 'Drama', 'job': 'Director'}]`, []nestedEntry{{Name: "Drama", Job: "Director"}}, false},
		{"null element", `[null, "x"]`, []nestedEntry{{Name: "x"}}, false},
		{"number element", `[1]`, nil, true},
		{"not a list", `{"name": "x"}`, nil, true},
		{"truncated", `[{"name": `, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNested(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFirstDirector(t *testing.T) {
	crew := []nestedEntry{
		{Job: "Writer", Name: "W"},
		{Job: "director", Name: "  "},
		{Job: " Director ", Name: "James Cameron"},
		{Job: "Director", Name: "Second"},
	}
	if got := firstDirector(crew); got != "James Cameron" {
		t.Errorf("firstDirector = %q", got)
	}
	if got := firstDirector(nil); got != "" {
		t.Errorf("firstDirector(nil) = %q", got)
	}
}
