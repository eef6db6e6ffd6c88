// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"errors"
	"testing"
	"time"
)

func TestKeyCounter_AssignIsDenseAndStable(t *testing.T) {
	c := NewKeyCounter()

	for i, nk := range []string{"action", "drama", "action", "comedy", "drama"} {
		key, _ := c.Assign(nk)
		if i == 2 && key != 1 {
			t.Errorf("Assign(action) again = %d, want 1", key)
		}
	}

	want := map[string]int64{"action": 1, "drama": 2, "comedy": 3}
	for nk, key := range want {
		if got, ok := c.Lookup(nk); !ok || got != key {
			t.Errorf("Lookup(%q) = %d, %v; want %d", nk, got, ok, key)
		}
	}
	if c.Next != 4 {
		t.Errorf("Next = %d, want 4", c.Next)
	}
	if nk, ok := c.NaturalKey(2); !ok || nk != "drama" {
		t.Errorf("NaturalKey(2) = %q, %v; want drama", nk, ok)
	}
}

func TestKeyCounter_AssignReportsMinting(t *testing.T) {
	c := NewKeyCounter()
	if _, minted := c.Assign("x"); !minted {
		t.Error("first Assign should mint")
	}
	if _, minted := c.Assign("x"); minted {
		t.Error("second Assign should reuse")
	}
}

type keySeed struct {
	nk  string
	key int64
}

func TestKeyCounter_Seed(t *testing.T) {
	tests := []struct {
		name    string
		seeds   []keySeed
		wantErr bool
		next    int64
	}{
		{
			name: "gaps continue after max",
			seeds: []keySeed{
				{"a", 1}, {"b", 5},
			},
			next: 6,
		},
		{
			name: "duplicate natural key",
			seeds: []keySeed{
				{"a", 1}, {"a", 2},
			},
			wantErr: true,
		},
		{
			name: "duplicate surrogate key",
			seeds: []keySeed{
				{"a", 1}, {"b", 1},
			},
			wantErr: true,
		},
		{
			name: "non-positive key",
			seeds: []keySeed{
				{"a", 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewKeyCounter()
			var err error
			for _, s := range tt.seeds {
				if err = c.Seed(s.nk, s.key); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Seed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Next != tt.next {
				t.Errorf("Next = %d, want %d", c.Next, tt.next)
			}
		})
	}
}

func TestKeyState_CloneIsIndependent(t *testing.T) {
	s := NewKeyState()
	s.Counter(DimGenre).Assign("action")

	clone := s.Clone()
	clone.Counter(DimGenre).Assign("drama")

	if s.Counter(DimGenre).Len() != 1 {
		t.Errorf("original genre counter has %d keys, want 1", s.Counter(DimGenre).Len())
	}
	if clone.Counter(DimGenre).Len() != 2 {
		t.Errorf("clone genre counter has %d keys, want 2", clone.Counter(DimGenre).Len())
	}
	for _, d := range AllDimensions {
		if _, ok := s[d]; !ok {
			t.Errorf("NewKeyState missing dimension %s", d)
		}
	}
}

func TestIngestReport_Record(t *testing.T) {
	r := NewIngestReport()
	r.Record(Issue{Kind: IssueMissingIdentity, Stream: StreamMovies})
	r.Record(Issue{Kind: IssueDuplicateIdentity, Stream: StreamMovies})
	r.Record(Issue{Kind: IssueDuplicateIdentity, Stream: StreamCredits})
	r.Record(Issue{Kind: IssueMalformedRecord, Stream: StreamMovies, Field: "genres"})
	r.Record(Issue{Kind: IssueMalformedRecord, Stream: StreamMovies, Field: "genres"})

	if r.Rejected() != 2 {
		t.Errorf("Rejected() = %d, want 2", r.Rejected())
	}
	if r.CreditsDuplicateIdentity != 1 {
		t.Errorf("CreditsDuplicateIdentity = %d, want 1", r.CreditsDuplicateIdentity)
	}
	if r.MalformedFields["genres"] != 2 || r.Malformed() != 2 {
		t.Errorf("MalformedFields = %v, want genres:2", r.MalformedFields)
	}
	if len(r.Issues) != 5 {
		t.Errorf("len(Issues) = %d, want 5", len(r.Issues))
	}
}

func TestRunSummary_Apply(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewRunSummary("run-1", ModeCSV, start)

	ingest := NewIngestReport()
	ingest.MoviesRead = 4
	ingest.Cleaned = 3
	ingest.Record(Issue{Kind: IssueMissingIdentity, Stream: StreamMovies})
	s.ApplyIngest(ingest)

	build := NewBuildReport()
	build.Dimensions[DimGenre] = DimensionCounts{Inserted: 2, Reused: 1}
	build.Facts = 3
	build.RecordUnresolved(Issue{Detail: "missing genre"})
	s.ApplyBuild(build)

	s.ApplyLoad(&LoadResult{RowCounts: map[string]int64{TableFact: 3, "dim_genre": 3}})
	s.Finish(RunFailed, start.Add(1500*time.Millisecond), errors.New("boom"))

	if s.RecordsRead != 4 || s.RecordsCleaned != 3 || s.RecordsRejected != 1 {
		t.Errorf("ingest counts = %d/%d/%d, want 4/3/1", s.RecordsRead, s.RecordsCleaned, s.RecordsRejected)
	}
	if s.Inserted["dim_genre"] != 2 || s.Reused["dim_genre"] != 1 {
		t.Errorf("genre counts = %d/%d, want 2/1", s.Inserted["dim_genre"], s.Reused["dim_genre"])
	}
	if s.Rejections[IssueUnresolvedReference] != 1 {
		t.Errorf("unresolved = %d, want 1", s.Rejections[IssueUnresolvedReference])
	}
	if s.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", s.DurationMs)
	}
	if s.Status != RunFailed || s.Error != "boom" {
		t.Errorf("Status/Error = %s/%q", s.Status, s.Error)
	}
	if got := s.Tables(); len(got) != 2 || got[0] != "dim_genre" {
		t.Errorf("Tables() = %v", got)
	}
}
