// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package models defines the shared data model for Tagarr.
//
// Sonarr (series) and Radarr (movies) expose the same API contract shape
// with different resource names and field layouts. The arr client layer
// normalizes both flavors into the Item and Tag types defined here, so the
// reconciliation core never sees backend-specific JSON.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Item is a managed media entity (a series in Sonarr, a movie in Radarr).
// It is read fresh from the remote immediately before each reconciliation
// and never cached across passes; the remote is the source of truth.
type Item struct {
	// ID is the stable identifier assigned by the remote system.
	ID int64 `json:"id"`

	Title     string `json:"title"`
	Year      int    `json:"year"`
	Path      string `json:"path"`
	Monitored bool   `json:"monitored"`

	// Tags holds the item's current tag IDs as read from the remote.
	Tags []int64 `json:"tags"`

	// RuntimeMinutes is the remote's runtime metadata, used by edition
	// heuristics. Zero when the remote does not report it.
	RuntimeMinutes int `json:"runtime_minutes,omitempty"`

	// Document is the full resource as returned by the remote. Sonarr and
	// Radarr only support full-object PUT for updates, so the write path
	// must send back everything that was read, with only the tags field
	// changed. Not serialized in API responses.
	Document map[string]json.RawMessage `json:"-"`
}

// HasTag reports whether the item currently carries the given tag ID.
func (i *Item) HasTag(id int64) bool {
	for _, t := range i.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// Tag is a remote-system label attachable to items.
type Tag struct {
	// ID is assigned by the remote on creation.
	ID int64 `json:"id"`

	// Label is unique per remote instance. Labels are canonicalized
	// before lookup or creation so that "HDR" and "hdr" never become
	// two distinct remote tags.
	Label string `json:"label"`
}

// TagDiff describes the mutation applied to an item's tag set.
type TagDiff struct {
	Added   []int64 `json:"added"`
	Removed []int64 `json:"removed"`
}

// Empty reports whether the diff contains no changes.
func (d TagDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Outcome classifies the result of reconciling a single item.
type Outcome string

const (
	// OutcomeApplied means a remote write was issued and succeeded.
	OutcomeApplied Outcome = "applied"

	// OutcomeNoop means desired state already matched remote state and
	// no mutating call was issued.
	OutcomeNoop Outcome = "noop"

	// OutcomeFailed means the item's reconciliation failed. The failure
	// never affects other items in the same pass.
	OutcomeFailed Outcome = "failed"
)

// ItemResult is the per-item outcome of one reconciliation attempt.
type ItemResult struct {
	ItemID  int64   `json:"item_id"`
	Outcome Outcome `json:"outcome"`
	Diff    TagDiff `json:"diff"`
	Error   string  `json:"error,omitempty"`
}

// RunSummary aggregates the outcomes of one reconciliation pass.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Service    string    `json:"service"` // "sonarr" or "radarr"
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Attempted int `json:"attempted"`
	Applied   int `json:"applied"`
	Noop      int `json:"noop"`
	Failed    int `json:"failed"`

	// Skipped counts items that were never dispatched because the pass
	// was canceled or short-circuited on an authentication failure.
	Skipped int `json:"skipped"`

	// Aborted is set when the pass stopped dispatching early
	// (authentication failure, cancellation, or pass deadline).
	Aborted     bool   `json:"aborted"`
	AbortReason string `json:"abort_reason,omitempty"`

	Failures []ItemResult `json:"failures,omitempty"`
}
