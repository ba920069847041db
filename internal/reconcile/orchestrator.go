// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/metrics"
	"github.com/tomtom215/tagarr/internal/models"
)

// Abort reasons recorded in RunSummary.AbortReason.
const (
	abortAuthFailed = "auth_failed"
	abortCanceled   = "canceled"
	abortDeadline   = "pass_deadline_exceeded"
)

// OrchestratorConfig bounds a reconciliation pass.
type OrchestratorConfig struct {
	// Concurrency caps simultaneous item reconciliations. Default 4,
	// kept small to respect remote rate limits.
	Concurrency int

	// PassTimeout bounds a whole pass. Zero means no pass-level deadline.
	// When exceeded, no further items are dispatched; in-flight items run
	// to completion (or their per-call timeouts).
	PassTimeout time.Duration
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Orchestrator drives reconciliation across many items with bounded
// concurrency and full failure isolation: one item's failure never cancels
// or blocks the others. The single exception is an authentication failure,
// which is pass-wide by nature (credentials do not get better per item), so
// it short-circuits remaining dispatch.
type Orchestrator struct {
	engine *Engine
	cfg    OrchestratorConfig
}

// NewOrchestrator creates an orchestrator over the given engine.
func NewOrchestrator(engine *Engine, cfg OrchestratorConfig) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{engine: engine, cfg: cfg}
}

// RunPassAll reconciles the entire library: it enumerates items from the
// remote, then runs a pass over their IDs.
func (o *Orchestrator) RunPassAll(ctx context.Context) (*models.RunSummary, error) {
	items, err := o.engine.Client().ListItems(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return o.RunPass(ctx, ids), nil
}

// RunPass reconciles the given items and aggregates the outcomes.
//
// Cancellation is cooperative: it is checked between item dispatches, so
// already-dispatched items finish (bounded by the client's per-call
// timeouts) while no new ones start.
func (o *Orchestrator) RunPass(ctx context.Context, itemIDs []int64) *models.RunSummary {
	runID := uuid.New().String()
	ctx = logging.ContextWithRunID(ctx, runID)

	cancel := func() {}
	if o.cfg.PassTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.cfg.PassTimeout)
	}
	defer cancel()

	service := o.engine.Client().Service()
	started := time.Now()

	logging.Ctx(ctx).Info().
		Str("service", service).
		Int("items", len(itemIDs)).
		Int("concurrency", o.cfg.Concurrency).
		Msg("Reconciliation pass started")

	summary := &models.RunSummary{
		RunID:     runID,
		Service:   service,
		StartedAt: started,
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		authFailed atomic.Bool
	)
	sem := make(chan struct{}, o.cfg.Concurrency)

	results := make([]models.ItemResult, 0, len(itemIDs))

dispatch:
	for _, id := range itemIDs {
		if authFailed.Load() {
			summary.Aborted = true
			summary.AbortReason = abortAuthFailed
			summary.Skipped++
			continue
		}
		// Checked before the select: with a free semaphore slot and a done
		// context both ready, select would pick at random.
		if ctx.Err() != nil {
			summary.Aborted = true
			summary.AbortReason = abortReason(ctx)
			// Count this and all remaining items as skipped.
			summary.Skipped = len(itemIDs) - summary.Attempted
			break dispatch
		}
		select {
		case <-ctx.Done():
			summary.Aborted = true
			summary.AbortReason = abortReason(ctx)
			summary.Skipped = len(itemIDs) - summary.Attempted
			break dispatch
		case sem <- struct{}{}:
		}

		summary.Attempted++
		wg.Add(1)
		go func(itemID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := o.engine.Reconcile(ctx, itemID)
			if err != nil && errors.Is(err, arr.ErrAuthFailed) {
				authFailed.Store(true)
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(id)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].ItemID < results[j].ItemID })
	for _, r := range results {
		switch r.Outcome {
		case models.OutcomeApplied:
			summary.Applied++
		case models.OutcomeNoop:
			summary.Noop++
		case models.OutcomeFailed:
			summary.Failed++
			summary.Failures = append(summary.Failures, r)
		}
	}

	summary.FinishedAt = time.Now()
	metrics.RecordPass(service, passResult(summary), summary.FinishedAt.Sub(started))

	logging.Ctx(ctx).Info().
		Str("service", service).
		Int("attempted", summary.Attempted).
		Int("applied", summary.Applied).
		Int("noop", summary.Noop).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Bool("aborted", summary.Aborted).
		Dur("duration", summary.FinishedAt.Sub(started)).
		Msg("Reconciliation pass finished")

	return summary
}

func abortReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return abortDeadline
	}
	return abortCanceled
}

func passResult(s *models.RunSummary) string {
	switch {
	case s.Aborted:
		return "aborted"
	case s.Failed > 0:
		return "partial"
	default:
		return "success"
	}
}
