// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package runlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// Key layout:
//
//	run:<started unix nanos, 20 digits>:<run id>  -> summary JSON
//	id:<run id>                                   -> run: key
const (
	prefixRun = "run:"
	prefixID  = "id:"
)

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the ledger at path. inMemory ignores path.
func OpenBadger(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Debug().Str("path", path).Bool("in_memory", inMemory).Msg("Run log opened")
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an open BadgerDB.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func runKey(s *models.RunSummary) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixRun, s.StartedAt.UnixNano(), s.RunID))
}

// Save persists the summary. A summary saved again with the same run id
// and start time replaces the earlier copy.
func (b *BadgerStore) Save(_ context.Context, s *models.RunSummary) error {
	if s == nil || s.RunID == "" {
		return errors.New("run summary without run id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	key := runKey(s)
	return b.db.Update(func(txn *badger.Txn) error {
		idKey := []byte(prefixID + s.RunID)
		item, err := txn.Get(idKey)
		switch {
		case err == nil:
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(old) != string(key) {
				if err := txn.Delete(old); err != nil {
					return err
				}
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idKey, key)
	})
}

// Get returns the summary of runID or ErrNotFound.
func (b *BadgerStore) Get(_ context.Context, runID string) (*models.RunSummary, error) {
	var s models.RunSummary
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixID + runID))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &s, nil
}

// Latest returns the newest summary or nil.
func (b *BadgerStore) Latest(ctx context.Context) (*models.RunSummary, error) {
	runs, err := b.List(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// List returns summaries newest first.
func (b *BadgerStore) List(_ context.Context, limit int) ([]*models.RunSummary, error) {
	var out []*models.RunSummary
	err := b.db.View(func(txn *badger.Txn) error {
		return reverseRuns(txn, func(item *badger.Item) (bool, error) {
			var s models.RunSummary
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return false, fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			out = append(out, &s)
			return limit <= 0 || len(out) < limit, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Prune deletes all but the newest keep summaries.
func (b *BadgerStore) Prune(_ context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	var stale [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		seen := 0
		return reverseRuns(txn, func(item *badger.Item) (bool, error) {
			seen++
			if seen > keep {
				stale = append(stale, item.KeyCopy(nil))
			}
			return true, nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("scan runs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete %s: %w", key, err)
		}
		if id := runIDFromKey(key); id != "" {
			if err := wb.Delete([]byte(prefixID + id)); err != nil {
				return 0, fmt.Errorf("delete index %s: %w", id, err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush prune: %w", err)
	}
	return len(stale), nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// reverseRuns visits run keys newest first until fn returns false.
func reverseRuns(txn *badger.Txn, fn func(*badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = []byte(prefixRun)
	it := txn.NewIterator(opts)
	defer it.Close()

	// In reverse mode Seek lands on the largest key <= the seek key.
	for it.Seek([]byte(prefixRun + "\xff")); it.ValidForPrefix([]byte(prefixRun)); it.Next() {
		more, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// runIDFromKey extracts the run id from a run: key.
func runIDFromKey(key []byte) string {
	rest := strings.TrimPrefix(string(key), prefixRun)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}
