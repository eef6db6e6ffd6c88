// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"sort"
	"time"
)

// IssueKind classifies a data problem found during a run.
type IssueKind string

// Issue kinds. Only IssueLoadFailure aborts a run.
const (
	IssueMalformedRecord     IssueKind = "malformed_record"
	IssueMissingIdentity     IssueKind = "missing_identity"
	IssueDuplicateIdentity   IssueKind = "duplicate_identity"
	IssueUnresolvedReference IssueKind = "unresolved_reference"
	IssueLoadFailure         IssueKind = "load_failure"
)

// Issue describes a single recoverable data problem.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Stream   string    `json:"stream,omitempty"`
	Row      int       `json:"row,omitempty"`
	SourceID string    `json:"source_id,omitempty"`
	Field    string    `json:"field,omitempty"`
	Detail   string    `json:"detail"`
}

// IngestReport accumulates the outcome of cleaning one batch.
type IngestReport struct {
	MoviesRead  int `json:"movies_read"`
	CreditsRead int `json:"credits_read"`
	Cleaned     int `json:"cleaned"`

	MissingIdentity   int `json:"missing_identity"`
	DuplicateIdentity int `json:"duplicate_identity"`

	CreditsMissingIdentity   int `json:"credits_missing_identity"`
	CreditsDuplicateIdentity int `json:"credits_duplicate_identity"`
	OrphanCredits            int `json:"orphan_credits"`

	// MalformedFields counts degraded fields by field name.
	MalformedFields map[string]int `json:"malformed_fields"`

	Issues []Issue `json:"issues,omitempty"`
}

// NewIngestReport returns an empty report.
func NewIngestReport() *IngestReport {
	return &IngestReport{MalformedFields: make(map[string]int)}
}

// Record appends an issue and updates the matching counter.
func (r *IngestReport) Record(issue Issue) {
	r.Issues = append(r.Issues, issue)
	switch issue.Kind {
	case IssueMalformedRecord:
		if r.MalformedFields == nil {
			r.MalformedFields = make(map[string]int)
		}
		r.MalformedFields[issue.Field]++
	case IssueMissingIdentity:
		if issue.Stream == StreamCredits {
			r.CreditsMissingIdentity++
		} else {
			r.MissingIdentity++
		}
	case IssueDuplicateIdentity:
		if issue.Stream == StreamCredits {
			r.CreditsDuplicateIdentity++
		} else {
			r.DuplicateIdentity++
		}
	}
}

// Rejected returns the number of movie records excluded from the output.
func (r *IngestReport) Rejected() int {
	return r.MissingIdentity + r.DuplicateIdentity
}

// Malformed returns the total number of degraded fields.
func (r *IngestReport) Malformed() int {
	total := 0
	for _, n := range r.MalformedFields {
		total += n
	}
	return total
}

// DimensionCounts reports how a build used one dimension. Inserted counts
// newly minted keys; Reused counts distinct natural keys of the batch that
// resolved to a key already present in the prior state.
type DimensionCounts struct {
	Inserted int `json:"inserted"`
	Reused   int `json:"reused"`
}

// BuildReport is returned alongside the table set of a build.
type BuildReport struct {
	Dimensions        map[Dimension]DimensionCounts `json:"dimensions"`
	Facts             int                           `json:"facts"`
	BridgeRows        int                           `json:"bridge_rows"`
	CarriedFacts      int                           `json:"carried_facts"`
	CarriedBridgeRows int                           `json:"carried_bridge_rows"`
	Unresolved        int                           `json:"unresolved"`
	Issues            []Issue                       `json:"issues,omitempty"`
}

// NewBuildReport returns an empty report.
func NewBuildReport() *BuildReport {
	return &BuildReport{Dimensions: make(map[Dimension]DimensionCounts, len(AllDimensions))}
}

// RecordUnresolved counts a fact or bridge row skipped for a missing key.
func (r *BuildReport) RecordUnresolved(issue Issue) {
	issue.Kind = IssueUnresolvedReference
	r.Unresolved++
	r.Issues = append(r.Issues, issue)
}

// LoadResult reports a successful warehouse load.
type LoadResult struct {
	RowCounts map[string]int64 `json:"row_counts"`
	Skipped   int              `json:"skipped"`
	Duration  time.Duration    `json:"duration"`
}

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

// Run statuses.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// Run modes.
const (
	ModeCSV    = "csv"
	ModeReplay = "replay"
)

// RunSummary is the structured report of one pipeline run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	RecordsRead     int               `json:"records_read"`
	CreditsRead     int               `json:"credits_read"`
	RecordsCleaned  int               `json:"records_cleaned"`
	RecordsRejected int               `json:"records_rejected"`
	Rejections      map[IssueKind]int `json:"rejections"`
	MalformedFields map[string]int    `json:"malformed_fields,omitempty"`
	OrphanCredits   int               `json:"orphan_credits"`

	Inserted          map[string]int   `json:"rows_inserted"`
	Reused            map[string]int   `json:"rows_reused"`
	RowCounts         map[string]int64 `json:"table_rows"`
	SkippedReferences int              `json:"skipped_references"`

	SilverPath string `json:"silver_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewRunSummary starts a summary in the running state.
func NewRunSummary(runID, mode string, started time.Time) *RunSummary {
	return &RunSummary{
		RunID:      runID,
		Mode:       mode,
		Status:     RunRunning,
		StartedAt:  started,
		Rejections: make(map[IssueKind]int),
		Inserted:   make(map[string]int),
		Reused:     make(map[string]int),
		RowCounts:  make(map[string]int64),
	}
}

// ApplyIngest copies the ingest counters into the summary.
func (s *RunSummary) ApplyIngest(r *IngestReport) {
	if r == nil {
		return
	}
	s.RecordsRead = r.MoviesRead
	s.CreditsRead = r.CreditsRead
	s.RecordsCleaned = r.Cleaned
	s.RecordsRejected = r.Rejected()
	s.OrphanCredits = r.OrphanCredits
	s.Rejections[IssueMissingIdentity] = r.MissingIdentity + r.CreditsMissingIdentity
	s.Rejections[IssueDuplicateIdentity] = r.DuplicateIdentity + r.CreditsDuplicateIdentity
	s.Rejections[IssueMalformedRecord] = r.Malformed()
	if len(r.MalformedFields) > 0 {
		s.MalformedFields = make(map[string]int, len(r.MalformedFields))
		for field, n := range r.MalformedFields {
			s.MalformedFields[field] = n
		}
	}
}

// ApplyBuild copies the per-dimension counters into the summary.
func (s *RunSummary) ApplyBuild(r *BuildReport) {
	if r == nil {
		return
	}
	for d, c := range r.Dimensions {
		s.Inserted[d.Table()] = c.Inserted
		s.Reused[d.Table()] = c.Reused
	}
	s.Inserted[TableFact] = r.Facts
	s.Inserted[TableBridge] = r.BridgeRows
	s.SkippedReferences = r.Unresolved
	s.Rejections[IssueUnresolvedReference] = r.Unresolved
}

// ApplyLoad copies the persisted row counts into the summary.
func (s *RunSummary) ApplyLoad(r *LoadResult) {
	if r == nil {
		return
	}
	for table, n := range r.RowCounts {
		s.RowCounts[table] = n
	}
}

// Finish stamps the terminal status and duration.
func (s *RunSummary) Finish(status RunStatus, finished time.Time, err error) {
	s.Status = status
	s.FinishedAt = finished
	s.DurationMs = finished.Sub(s.StartedAt).Milliseconds()
	if err != nil {
		s.Error = err.Error()
	}
}

// Tables returns the table names in the summary's row counts, sorted.
func (s *RunSummary) Tables() []string {
	tables := make([]string, 0, len(s.RowCounts))
	for t := range s.RowCounts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
