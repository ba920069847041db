// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/detect"
	"github.com/tomtom215/tagarr/internal/models"
)

func TestRunPassIsolatesItemFailures(t *testing.T) {
	client := newFakeClient(
		&models.Item{ID: 1, Tags: []int64{}},
		&models.Item{ID: 2, Tags: []int64{}},
		&models.Item{ID: 3, Tags: []int64{}},
	)
	client.errFor[2] = fmt.Errorf("%w: connection reset", arr.ErrUnreachable)

	engine := NewEngine(client, staticDetector(detect.AttrHDR10), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{Concurrency: 2})

	summary := orch.RunPass(context.Background(), []int64{1, 2, 3})

	if summary.Aborted {
		t.Fatalf("pass aborted (%s), want completion despite one failure", summary.AbortReason)
	}
	if summary.Attempted != 3 {
		t.Errorf("attempted = %d, want 3", summary.Attempted)
	}
	if summary.Applied != 2 || summary.Failed != 1 {
		t.Errorf("applied/failed = %d/%d, want 2/1", summary.Applied, summary.Failed)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].ItemID != 2 {
		t.Errorf("failures = %+v, want exactly item 2", summary.Failures)
	}
}

func TestRunPassAuthFailureAbortsPass(t *testing.T) {
	items := make([]*models.Item, 0, 10)
	ids := make([]int64, 0, 10)
	for i := int64(1); i <= 10; i++ {
		items = append(items, &models.Item{ID: i, Tags: []int64{}})
		ids = append(ids, i)
	}
	client := newFakeClient(items...)
	for _, id := range ids {
		client.errFor[id] = fmt.Errorf("%w: invalid API key", arr.ErrAuthFailed)
	}

	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{Concurrency: 1})

	summary := orch.RunPass(context.Background(), ids)

	if !summary.Aborted || summary.AbortReason != "auth_failed" {
		t.Fatalf("aborted=%v reason=%q, want auth_failed abort", summary.Aborted, summary.AbortReason)
	}
	// With concurrency 1 the dispatcher learns of the auth failure after
	// the second slot handoff at the latest.
	if summary.Attempted > 2 {
		t.Errorf("attempted = %d, want at most 2 after fast-fail", summary.Attempted)
	}
	if summary.Attempted+summary.Skipped != 10 {
		t.Errorf("attempted+skipped = %d, want 10", summary.Attempted+summary.Skipped)
	}
}

func TestRunPassCanceledContext(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{Concurrency: 4})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := orch.RunPass(ctx, []int64{1, 2, 3})

	if !summary.Aborted || summary.AbortReason != "canceled" {
		t.Fatalf("aborted=%v reason=%q, want canceled abort", summary.Aborted, summary.AbortReason)
	}
	if summary.Attempted != 0 || summary.Skipped != 3 {
		t.Errorf("attempted/skipped = %d/%d, want 0/3", summary.Attempted, summary.Skipped)
	}
	if got := client.setCalls[1]; got != 0 {
		t.Errorf("SetItemTags calls = %d, want 0 after cancellation", got)
	}
}

func TestRunPassDeadlineExceeded(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{Concurrency: 4, PassTimeout: time.Nanosecond})

	summary := orch.RunPass(context.Background(), []int64{1, 2})

	if !summary.Aborted || summary.AbortReason != "pass_deadline_exceeded" {
		t.Fatalf("aborted=%v reason=%q, want pass_deadline_exceeded", summary.Aborted, summary.AbortReason)
	}
}

func TestRunPassAllListsItems(t *testing.T) {
	client := newFakeClient(
		&models.Item{ID: 7, Tags: []int64{}},
		&models.Item{ID: 8, Tags: []int64{}},
	)
	engine := NewEngine(client, staticDetector(detect.AttrIMAXEnhanced), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{})

	summary, err := orch.RunPassAll(context.Background())
	if err != nil {
		t.Fatalf("RunPassAll: %v", err)
	}
	if summary.Attempted != 2 || summary.Applied != 2 {
		t.Errorf("attempted/applied = %d/%d, want 2/2", summary.Attempted, summary.Applied)
	}
	if summary.RunID == "" {
		t.Error("summary missing run ID")
	}
	if summary.Service != "sonarr" {
		t.Errorf("service = %q, want sonarr", summary.Service)
	}
}

func TestRunPassAllListFailure(t *testing.T) {
	client := newFakeClient()
	client.listErr = fmt.Errorf("%w: 502", arr.ErrUnreachable)
	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{})

	if _, err := orch.RunPassAll(context.Background()); err == nil {
		t.Fatal("expected error when the item listing fails")
	}
}

func TestRunPassEmpty(t *testing.T) {
	client := newFakeClient()
	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAdditive)
	orch := NewOrchestrator(engine, OrchestratorConfig{})

	summary := orch.RunPass(context.Background(), nil)
	if summary.Aborted || summary.Attempted != 0 {
		t.Errorf("empty pass: aborted=%v attempted=%d, want clean zero summary", summary.Aborted, summary.Attempted)
	}
	if summary.FinishedAt.Before(summary.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
}
