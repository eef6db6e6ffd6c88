// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package warehouse

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/tomtom215/marquee/internal/models"
)

// registry holds the rows and key counter of one dimension during a build.
// It is confined to a single goroutine.
type registry[R any] struct {
	dim          models.Dimension
	counter      *models.KeyCounter
	keyOf        func(*R) int64
	naturalKeyOf func(*R) string

	rows  []R
	index map[string]int // natural key -> position in rows

	seeded   map[string]struct{}
	reused   map[string]struct{}
	inserted int
}

func newRegistry[R any](dim models.Dimension, keyOf func(*R) int64, naturalKeyOf func(*R) string) *registry[R] {
	return &registry[R]{
		dim:          dim,
		counter:      models.NewKeyCounter(),
		keyOf:        keyOf,
		naturalKeyOf: naturalKeyOf,
		index:        make(map[string]int),
		seeded:       make(map[string]struct{}),
		reused:       make(map[string]struct{}),
	}
}

// seedFrom loads the prior rows of the dimension and checks them against
// the prior key counter.
func (r *registry[R]) seedFrom(rows []R, prior models.KeyState) error {
	for i := range rows {
		row := rows[i]
		nk := r.naturalKeyOf(&row)
		if nk == "" {
			return fmt.Errorf("seed %s: row %d has an empty natural key", r.dim.Table(), r.keyOf(&row))
		}
		if err := r.counter.Seed(nk, r.keyOf(&row)); err != nil {
			return fmt.Errorf("seed %s: %w", r.dim.Table(), err)
		}
		r.index[nk] = len(r.rows)
		r.rows = append(r.rows, row)
		r.seeded[nk] = struct{}{}
	}
	return r.reconcile(prior[r.dim])
}

// reconcile checks a prior key counter against the seeded rows. Every
// mapping must match a row and the counter must not be ahead of them.
func (r *registry[R]) reconcile(prior *models.KeyCounter) error {
	if prior == nil {
		return nil
	}
	for nk, key := range prior.Keys {
		got, ok := r.counter.Lookup(nk)
		if !ok || got != key {
			return fmt.Errorf("seed %s: key state maps %q to %d but rows do not", r.dim.Table(), nk, key)
		}
	}
	if prior.Len() > 0 && prior.Next != r.counter.Next {
		return fmt.Errorf("seed %s: key state next %d, rows imply %d", r.dim.Table(), prior.Next, r.counter.Next)
	}
	return nil
}

// resolve returns the key for naturalKey. Unseen keys are minted and their
// row built by create; update, if set, runs against an existing row.
func (r *registry[R]) resolve(naturalKey string, create func(key int64) R, update func(*R)) int64 {
	if i, ok := r.index[naturalKey]; ok {
		if _, prior := r.seeded[naturalKey]; prior {
			r.reused[naturalKey] = struct{}{}
		}
		if update != nil {
			update(&r.rows[i])
		}
		return r.keyOf(&r.rows[i])
	}

	key, _ := r.counter.Assign(naturalKey)
	r.index[naturalKey] = len(r.rows)
	r.rows = append(r.rows, create(key))
	r.inserted++
	return key
}

func (r *registry[R]) has(naturalKey string) bool {
	_, ok := r.index[naturalKey]
	return ok
}

func (r *registry[R]) lookup(naturalKey string) (int64, bool) {
	return r.counter.Lookup(naturalKey)
}

func (r *registry[R]) counts() models.DimensionCounts {
	return models.DimensionCounts{Inserted: r.inserted, Reused: len(r.reused)}
}

// sorted returns the rows ordered by surrogate key.
func (r *registry[R]) sorted() []R {
	out := slices.Clone(r.rows)
	slices.SortFunc(out, func(a, b R) int {
		return cmp.Compare(r.keyOf(&a), r.keyOf(&b))
	})
	return out
}

// fillEmpty sets *dst to src when dst is empty.
func fillEmpty(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}
