// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package store persists reconciliation run history in BadgerDB.
//
// Each RunSummary is stored under two keys: a time-ordered index key for
// listing recent runs newest-first, and a direct run-ID key for lookups.
// Entries carry a TTL so history expires without a compaction loop.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/models"
)

// ErrRunNotFound indicates no run summary exists for the given ID.
var ErrRunNotFound = errors.New("run not found")

// Key prefixes. Index keys embed a reverse timestamp so Badger's
// lexicographic iteration yields newest runs first.
const (
	prefixRun   = "run:"
	prefixIndex = "idx:"
)

// HistoryStore records reconciliation run summaries.
type HistoryStore interface {
	Save(summary *models.RunSummary) error
	Get(runID string) (*models.RunSummary, error)
	List(limit int) ([]*models.RunSummary, error)
	Close() error
}

// Options configures a BadgerStore.
type Options struct {
	// Path is the BadgerDB directory.
	Path string

	// Retention is the TTL applied to run entries. Zero keeps them forever.
	Retention time.Duration

	// InMemory runs Badger without disk persistence (tests).
	InMemory bool
}

// BadgerStore is the BadgerDB-backed HistoryStore.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

// Open creates or opens the history database.
func Open(opts Options) (*BadgerStore, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("history store path is required")
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	// Badger's own logger is noisy at INFO; route nothing through it.
	badgerOpts.Logger = nil

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Dur("retention", opts.Retention).
		Msg("Run history store opened")

	return &BadgerStore{db: db, retention: opts.Retention}, nil
}

// Save persists a run summary under its run ID and the time index.
func (s *BadgerStore) Save(summary *models.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("run summary must have a run ID")
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	runKey := []byte(prefixRun + summary.RunID)
	indexKey := []byte(fmt.Sprintf("%s%020d:%s", prefixIndex, reverseTimestamp(summary.StartedAt), summary.RunID))

	return s.db.Update(func(txn *badger.Txn) error {
		runEntry := badger.NewEntry(runKey, data)
		indexEntry := badger.NewEntry(indexKey, []byte(summary.RunID))
		if s.retention > 0 {
			runEntry = runEntry.WithTTL(s.retention)
			indexEntry = indexEntry.WithTTL(s.retention)
		}
		if err := txn.SetEntry(runEntry); err != nil {
			return err
		}
		return txn.SetEntry(indexEntry)
	})
}

// Get returns the run summary for the given ID.
func (s *BadgerStore) Get(runID string) (*models.RunSummary, error) {
	var summary models.RunSummary
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixRun + runID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRunNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &summary)
		})
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// List returns up to limit run summaries, newest first.
func (s *BadgerStore) List(limit int) ([]*models.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	var runIDs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixIndex)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(runIDs) < limit; it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				runIDs = append(runIDs, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.RunSummary, 0, len(runIDs))
	for _, id := range runIDs {
		summary, err := s.Get(id)
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				// Index entry outlived its run entry (TTL skew); skip.
				continue
			}
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Close shuts down the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// reverseTimestamp inverts a time so lexicographic key order is
// newest-first.
func reverseTimestamp(t time.Time) int64 {
	const maxNanos = int64(1) << 62
	return maxNanos - t.UnixNano()
}
