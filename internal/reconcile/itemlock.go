// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package reconcile

import "sync"

// itemLocks provides per-item mutual exclusion. The engine holds an item's
// lock for the full read-detect-diff-write window, so at most one
// reconciliation runs per item ID while different items proceed in
// parallel. Entries are reference-counted and removed when unused, keeping
// the table bounded by live reconciliations rather than library size.
type itemLocks struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[int64]*lockEntry)}
}

// lock acquires the lock for the given item ID, blocking while another
// holder has it. The returned function releases the lock.
func (l *itemLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
