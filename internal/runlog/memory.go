// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package runlog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/marquee/internal/models"
)

// MemoryStore implements Store in memory. Summaries are copied on the way
// in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*models.RunSummary
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*models.RunSummary)}
}

func (m *MemoryStore) Save(_ context.Context, s *models.RunSummary) error {
	if s == nil || s.RunID == "" {
		return errors.New("run summary without run id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[s.RunID] = copySummary(s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, runID string) (*models.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return copySummary(s), nil
}

func (m *MemoryStore) Latest(ctx context.Context) (*models.RunSummary, error) {
	runs, err := m.List(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]*models.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.newestFirst()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i, s := range out {
		out[i] = copySummary(s)
	}
	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := m.newestFirst()
	if keep < 0 {
		keep = 0
	}
	if len(runs) <= keep {
		return 0, nil
	}
	for _, s := range runs[keep:] {
		delete(m.runs, s.RunID)
	}
	return len(runs) - keep, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// newestFirst orders by start time, then run id, both descending, matching
// the Badger key order. Callers hold the lock.
func (m *MemoryStore) newestFirst() []*models.RunSummary {
	out := make([]*models.RunSummary, 0, len(m.runs))
	for _, s := range m.runs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID > out[j].RunID
	})
	return out
}

func copySummary(s *models.RunSummary) *models.RunSummary {
	c := *s
	c.Rejections = copyMap(s.Rejections)
	c.MalformedFields = copyMap(s.MalformedFields)
	c.Inserted = copyMap(s.Inserted)
	c.Reused = copyMap(s.Reused)
	c.RowCounts = copyMap(s.RowCounts)
	return &c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
