// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/models"
)

// TypeBuildCompleted identifies a committed warehouse load.
const TypeBuildCompleted = "warehouse.build.completed"

// BuildCompleted is the payload published after a successful load.
type BuildCompleted struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	RunID      string `json:"run_id"`
	Mode       string `json:"mode"`
	DurationMs int64  `json:"duration_ms"`

	RecordsCleaned    int              `json:"records_cleaned"`
	RecordsRejected   int              `json:"records_rejected"`
	SkippedReferences int              `json:"skipped_references"`
	Inserted          map[string]int   `json:"rows_inserted"`
	RowCounts         map[string]int64 `json:"table_rows"`
}

// NewBuildCompleted builds the event for a finished run.
func NewBuildCompleted(s *models.RunSummary) *BuildCompleted {
	return &BuildCompleted{
		EventID:           uuid.New().String(),
		Type:              TypeBuildCompleted,
		OccurredAt:        s.FinishedAt,
		RunID:             s.RunID,
		Mode:              s.Mode,
		DurationMs:        s.DurationMs,
		RecordsCleaned:    s.RecordsCleaned,
		RecordsRejected:   s.RecordsRejected,
		SkippedReferences: s.SkippedReferences,
		Inserted:          s.Inserted,
		RowCounts:         s.RowCounts,
	}
}

// Validate checks the fields consumers rely on.
func (e *BuildCompleted) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("event_id is required")
	case e.RunID == "":
		return fmt.Errorf("run_id is required")
	case e.Type != TypeBuildCompleted:
		return fmt.Errorf("unexpected event type %q", e.Type)
	}
	return nil
}

// Marshal validates and encodes an event.
func Marshal(e *BuildCompleted) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an event payload.
func Unmarshal(data []byte) (*BuildCompleted, error) {
	var e BuildCompleted
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
