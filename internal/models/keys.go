// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "fmt"

// KeyCounter maps natural keys to surrogate keys for one dimension and
// tracks the next unused surrogate key.
type KeyCounter struct {
	Next int64
	Keys map[string]int64

	owners map[int64]string
}

// NewKeyCounter returns an empty counter whose first key is 1.
func NewKeyCounter() *KeyCounter {
	return &KeyCounter{
		Next:   1,
		Keys:   make(map[string]int64),
		owners: make(map[int64]string),
	}
}

// Lookup returns the surrogate key of a natural key, if assigned.
func (c *KeyCounter) Lookup(naturalKey string) (int64, bool) {
	key, ok := c.Keys[naturalKey]
	return key, ok
}

// Assign returns the existing key of naturalKey or mints the next one.
// minted reports whether a new key was allocated.
func (c *KeyCounter) Assign(naturalKey string) (key int64, minted bool) {
	if key, ok := c.Keys[naturalKey]; ok {
		return key, false
	}
	key = c.Next
	c.Next++
	c.Keys[naturalKey] = key
	c.ensureOwners()
	c.owners[key] = naturalKey
	return key, true
}

// Seed registers a mapping loaded from persisted state. It rejects
// mappings that would break the natural-key/surrogate-key bijection.
func (c *KeyCounter) Seed(naturalKey string, key int64) error {
	if key < 1 {
		return fmt.Errorf("invalid surrogate key %d for %q", key, naturalKey)
	}
	if existing, ok := c.Keys[naturalKey]; ok {
		return fmt.Errorf("natural key %q already mapped to %d", naturalKey, existing)
	}
	c.ensureOwners()
	if owner, ok := c.owners[key]; ok {
		return fmt.Errorf("surrogate key %d already owned by %q", key, owner)
	}
	c.Keys[naturalKey] = key
	c.owners[key] = naturalKey
	if key >= c.Next {
		c.Next = key + 1
	}
	return nil
}

// NaturalKey returns the natural key owning a surrogate key.
func (c *KeyCounter) NaturalKey(key int64) (string, bool) {
	c.ensureOwners()
	nk, ok := c.owners[key]
	return nk, ok
}

// Len returns the number of assigned keys.
func (c *KeyCounter) Len() int {
	return len(c.Keys)
}

// Clone returns an independent copy of the counter.
func (c *KeyCounter) Clone() *KeyCounter {
	out := &KeyCounter{
		Next:   c.Next,
		Keys:   make(map[string]int64, len(c.Keys)),
		owners: make(map[int64]string, len(c.Keys)),
	}
	for nk, key := range c.Keys {
		out.Keys[nk] = key
		out.owners[key] = nk
	}
	return out
}

// ensureOwners rebuilds the reverse index for counters built as literals.
func (c *KeyCounter) ensureOwners() {
	if c.Keys == nil {
		c.Keys = make(map[string]int64)
	}
	if c.owners != nil && len(c.owners) == len(c.Keys) {
		return
	}
	c.owners = make(map[int64]string, len(c.Keys))
	for nk, key := range c.Keys {
		c.owners[key] = nk
	}
}

// KeyState holds one KeyCounter per dimension.
type KeyState map[Dimension]*KeyCounter

// NewKeyState returns a state with an empty counter for every dimension.
func NewKeyState() KeyState {
	s := make(KeyState, len(AllDimensions))
	for _, d := range AllDimensions {
		s[d] = NewKeyCounter()
	}
	return s
}

// Counter returns the counter of a dimension, creating it if needed.
func (s KeyState) Counter(d Dimension) *KeyCounter {
	c, ok := s[d]
	if !ok {
		c = NewKeyCounter()
		s[d] = c
	}
	return c
}

// Clone returns a deep copy of the state.
func (s KeyState) Clone() KeyState {
	out := make(KeyState, len(s))
	for d, c := range s {
		out[d] = c.Clone()
	}
	return out
}
