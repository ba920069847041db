// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package scheduler runs periodic full-library reconciliation passes.
package scheduler

import (
	"context"
	"time"

	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/models"
	"github.com/tomtom215/tagarr/internal/store"
)

// PassRunner triggers a full-library reconciliation pass for one service.
type PassRunner interface {
	Service() string
	RunPassAll(ctx context.Context) (*models.RunSummary, error)
}

// Scheduler triggers reconciliation passes on a fixed interval.
// It implements suture.Service and is run under the supervision tree.
type Scheduler struct {
	runners  []PassRunner
	history  store.HistoryStore
	interval time.Duration
}

// New creates a scheduler over the given pass runners. A nil history
// store disables run persistence.
func New(runners []PassRunner, history store.HistoryStore, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{
		runners:  runners,
		history:  history,
		interval: interval,
	}
}

// Serve runs the scheduler loop until the context is canceled.
// The first pass fires after one full interval, not at startup, so a
// crash-restart cycle does not hammer the remote services.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.interval).
		Int("services", len(s.runners)).
		Msg("Scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Scheduler) String() string {
	return "reconcile-scheduler"
}

// runAll executes a full pass for every configured service sequentially.
// Services run one at a time so a scheduled pass never doubles the
// concurrent load against a single backend.
func (s *Scheduler) runAll(ctx context.Context) {
	for _, runner := range s.runners {
		if ctx.Err() != nil {
			return
		}

		summary, err := runner.RunPassAll(ctx)
		if err != nil {
			logging.Error().
				Err(err).
				Str("service", runner.Service()).
				Msg("Scheduled reconciliation pass failed")
			continue
		}

		logging.Info().
			Str("service", runner.Service()).
			Str("run_id", summary.RunID).
			Int("attempted", summary.Attempted).
			Int("applied", summary.Applied).
			Int("failed", summary.Failed).
			Msg("Scheduled reconciliation pass completed")

		if s.history != nil {
			if err := s.history.Save(summary); err != nil {
				logging.Error().
					Err(err).
					Str("run_id", summary.RunID).
					Msg("Failed to persist run summary")
			}
		}
	}
}
