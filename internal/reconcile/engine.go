// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package reconcile implements the tag reconciliation core: the per-item
// Engine and the pass-level Orchestrator.
//
// The engine converges one item's remote tag set to the desired state
// derived from detections. The critical guarantee is idempotence: running
// reconciliation on an unchanged item issues no mutating call. Remote state
// is read fresh at the start of every reconciliation and never cached
// across passes.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/detect"
	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/metrics"
	"github.com/tomtom215/tagarr/internal/models"
)

// Engine reconciles single items against one remote service. It is the
// sole writer of remote tag state. Safe for concurrent use; concurrent
// calls for the same item ID serialize on a per-item lock.
type Engine struct {
	client   arr.Client
	detector detect.Detector
	mapping  detect.Mapping
	policy   Policy
	locks    *itemLocks
}

// NewEngine creates a reconciliation engine.
func NewEngine(client arr.Client, detector detect.Detector, mapping detect.Mapping, policy Policy) *Engine {
	return &Engine{
		client:   client,
		detector: detector,
		mapping:  mapping,
		policy:   policy,
		locks:    newItemLocks(),
	}
}

// Client returns the remote client the engine writes through.
func (e *Engine) Client() arr.Client { return e.client }

// Reconcile converges one item. The returned ItemResult always describes
// the outcome; the error is the underlying failure for OutcomeFailed (nil
// otherwise) so the orchestrator can classify it (e.g. auth fast-fail).
//
// The per-item lock is held for the whole read-detect-diff-write window,
// so a concurrent caller for the same item observes this call's written
// state as its fresh read. Retries happen only inside the client's
// transport layer; this layer never re-issues a write whose outcome is
// unknown.
func (e *Engine) Reconcile(ctx context.Context, itemID int64) (models.ItemResult, error) {
	unlock := e.locks.lock(itemID)
	defer unlock()

	service := e.client.Service()
	metrics.ReconcileInFlight.WithLabelValues(service).Inc()
	defer metrics.ReconcileInFlight.WithLabelValues(service).Dec()

	result, err := e.reconcileLocked(ctx, itemID)
	metrics.ReconcileOutcomes.WithLabelValues(service, string(result.Outcome)).Inc()
	return result, err
}

func (e *Engine) reconcileLocked(ctx context.Context, itemID int64) (models.ItemResult, error) {
	log := logging.Ctx(ctx)

	// Step 1: fresh authoritative read.
	item, err := e.client.GetItem(ctx, itemID)
	if err != nil {
		return failedResult(itemID, fmt.Errorf("get item: %w", err)), err
	}

	// Step 2: detect attributes. Analysis failure degrades to zero
	// attributes rather than failing the item.
	attrs, err := e.detector.Detect(ctx, item)
	if err != nil {
		if !errors.Is(err, detect.ErrAnalysisFailed) {
			return failedResult(itemID, fmt.Errorf("detect: %w", err)), err
		}
		log.Warn().
			Int64("item_id", itemID).
			Str("title", item.Title).
			Err(err).
			Msg("Analysis failed, treating as no detections this pass")
		attrs = nil
	}

	// Step 3: resolve attributes to tag IDs, creating missing tags. The
	// remote tag list also scopes the authoritative policy: only labels in
	// the mapping table are ever eligible for removal.
	remoteTags, err := e.client.ListTags(ctx)
	if err != nil {
		return failedResult(itemID, fmt.Errorf("list tags: %w", err)), err
	}

	byLabel := make(map[string]models.Tag, len(remoteTags))
	managed := make(map[int64]bool)
	for _, tag := range remoteTags {
		canonical := arr.CanonicalLabel(tag.Label)
		byLabel[canonical] = tag
		if e.mapping.Manages(canonical) {
			managed[tag.ID] = true
		}
	}

	resolved := make([]int64, 0, len(attrs))
	for _, attr := range attrs {
		label, ok := e.mapping.Label(attr)
		if !ok {
			log.Debug().
				Int64("item_id", itemID).
				Str("attribute", string(attr)).
				Msg("Detected attribute has no mapping, skipping")
			continue
		}
		tag, ok := byLabel[label]
		if !ok {
			tag, err = e.client.CreateTag(ctx, label)
			if err != nil {
				return failedResult(itemID, fmt.Errorf("create tag %q: %w", label, err)), err
			}
			byLabel[label] = tag
		}
		managed[tag.ID] = true
		resolved = append(resolved, tag.ID)
	}

	// Steps 4-5: compute desired state; equal sets mean no write at all.
	desired := desiredTags(e.policy, item.Tags, resolved, managed)
	if sameTagSet(desired, item.Tags) {
		log.Debug().
			Int64("item_id", itemID).
			Str("title", item.Title).
			Msg("Already converged")
		return models.ItemResult{ItemID: itemID, Outcome: models.OutcomeNoop}, nil
	}

	// Step 6: single full-object write. No partial retry here.
	diff := diffTagSets(item.Tags, desired)
	if err := e.client.SetItemTags(ctx, item, desired); err != nil {
		return failedResult(itemID, fmt.Errorf("set item tags: %w", err)), err
	}

	log.Info().
		Int64("item_id", itemID).
		Str("title", item.Title).
		Ints64("added", diff.Added).
		Ints64("removed", diff.Removed).
		Msg("Tags reconciled")

	return models.ItemResult{ItemID: itemID, Outcome: models.OutcomeApplied, Diff: diff}, nil
}

func failedResult(itemID int64, err error) models.ItemResult {
	return models.ItemResult{
		ItemID:  itemID,
		Outcome: models.OutcomeFailed,
		Error:   err.Error(),
	}
}
