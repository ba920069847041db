// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/detect"
	"github.com/tomtom215/tagarr/internal/models"
)

// fakeClient is an in-memory arr.Client. Writes mutate the stored items,
// so a later read observes an earlier write, like the real remote.
type fakeClient struct {
	mu       sync.Mutex
	service  string
	items    map[int64]*models.Item
	tags     map[int64]models.Tag
	nextTag  int64
	setCalls map[int64]int

	getErr      error
	listErr     error
	listTagsErr error
	createErr   error
	setErr      error

	// errFor injects a per-item GetItem error.
	errFor map[int64]error
}

func newFakeClient(items ...*models.Item) *fakeClient {
	c := &fakeClient{
		service:  "sonarr",
		items:    make(map[int64]*models.Item),
		tags:     make(map[int64]models.Tag),
		nextTag:  1,
		setCalls: make(map[int64]int),
		errFor:   make(map[int64]error),
	}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *fakeClient) addTag(label string) models.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := models.Tag{ID: c.nextTag, Label: label}
	c.tags[tag.ID] = tag
	c.nextTag++
	return tag
}

func (c *fakeClient) Service() string                { return c.service }
func (c *fakeClient) Ping(ctx context.Context) error { return nil }
func (c *fakeClient) SystemStatus(ctx context.Context) (*arr.SystemStatus, error) {
	return &arr.SystemStatus{Version: "4.0.0.0"}, nil
}

func (c *fakeClient) ListTags(ctx context.Context) ([]models.Tag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listTagsErr != nil {
		return nil, c.listTagsErr
	}
	tags := make([]models.Tag, 0, len(c.tags))
	for _, tag := range c.tags {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (c *fakeClient) CreateTag(ctx context.Context, label string) (models.Tag, error) {
	if c.createErr != nil {
		return models.Tag{}, c.createErr
	}
	canonical := arr.CanonicalLabel(label)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range c.tags {
		if arr.CanonicalLabel(tag.Label) == canonical {
			return tag, nil
		}
	}
	tag := models.Tag{ID: c.nextTag, Label: canonical}
	c.tags[tag.ID] = tag
	c.nextTag++
	return tag, nil
}

func (c *fakeClient) ListItems(ctx context.Context) ([]models.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	items := make([]models.Item, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, *item)
	}
	return items, nil
}

func (c *fakeClient) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	if err := c.errFor[id]; err != nil {
		return nil, err
	}
	item, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", arr.ErrNotFound, id)
	}
	copied := *item
	copied.Tags = append([]int64(nil), item.Tags...)
	return &copied, nil
}

func (c *fakeClient) SetItemTags(ctx context.Context, item *models.Item, tags []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	stored, ok := c.items[item.ID]
	if !ok {
		return fmt.Errorf("%w: item %d", arr.ErrNotFound, item.ID)
	}
	stored.Tags = append([]int64(nil), tags...)
	c.setCalls[item.ID]++
	return nil
}

// staticDetector always reports the same attributes.
func staticDetector(attrs ...detect.Attribute) detect.Detector {
	return detect.DetectorFunc(func(ctx context.Context, item *models.Item) ([]detect.Attribute, error) {
		return attrs, nil
	})
}

func TestReconcileAppliesThenNoop(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Title: "Dune", Tags: []int64{}})
	engine := NewEngine(client, staticDetector(detect.AttrHDR10), detect.DefaultMapping(), PolicyAdditive)
	ctx := context.Background()

	result, err := engine.Reconcile(ctx, 1)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeApplied {
		t.Fatalf("first outcome = %s, want applied", result.Outcome)
	}
	if len(result.Diff.Added) != 1 || len(result.Diff.Removed) != 0 {
		t.Errorf("diff = %+v, want one added, none removed", result.Diff)
	}

	// Second run over unchanged state must issue no write at all.
	result, err = engine.Reconcile(ctx, 1)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeNoop {
		t.Errorf("second outcome = %s, want noop", result.Outcome)
	}
	if got := client.setCalls[1]; got != 1 {
		t.Errorf("SetItemTags calls = %d, want exactly 1", got)
	}
}

func TestReconcileCreatesMissingTagOnce(t *testing.T) {
	client := newFakeClient(
		&models.Item{ID: 1, Tags: []int64{}},
		&models.Item{ID: 2, Tags: []int64{}},
	)
	engine := NewEngine(client, staticDetector(detect.AttrDolbyVision), detect.DefaultMapping(), PolicyAdditive)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if _, err := engine.Reconcile(ctx, id); err != nil {
			t.Fatalf("Reconcile(%d): %v", id, err)
		}
	}

	// Both items must end with the same single dolby-vision tag ID.
	tags, _ := client.ListTags(ctx)
	if len(tags) != 1 {
		t.Fatalf("remote tags = %v, want exactly one", tags)
	}
	if !reflect.DeepEqual(client.items[1].Tags, client.items[2].Tags) {
		t.Errorf("items diverged: %v vs %v", client.items[1].Tags, client.items[2].Tags)
	}
}

func TestReconcileAdditivePreservesUnrelatedTags(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	favorite := client.addTag("favorite")
	client.items[1].Tags = []int64{favorite.ID}

	engine := NewEngine(client, staticDetector(detect.AttrHDR10), detect.DefaultMapping(), PolicyAdditive)

	result, err := engine.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", result.Outcome)
	}
	if len(result.Diff.Removed) != 0 {
		t.Errorf("additive removed tags: %v", result.Diff.Removed)
	}

	got := client.items[1].Tags
	if len(got) != 2 || !contains(got, favorite.ID) {
		t.Errorf("item tags = %v, want favorite %d preserved plus hdr", got, favorite.ID)
	}
}

func TestReconcileAuthoritativeRemovesOnlyManagedTags(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	hdr := client.addTag("hdr")
	favorite := client.addTag("favorite")
	client.items[1].Tags = []int64{hdr.ID, favorite.ID}

	// Detector no longer reports HDR: the managed hdr tag goes, the
	// user's favorite tag stays.
	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAuthoritative)

	result, err := engine.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", result.Outcome)
	}
	if !reflect.DeepEqual(result.Diff.Removed, []int64{hdr.ID}) {
		t.Errorf("removed = %v, want [%d]", result.Diff.Removed, hdr.ID)
	}
	if !reflect.DeepEqual(client.items[1].Tags, []int64{favorite.ID}) {
		t.Errorf("item tags = %v, want only favorite %d", client.items[1].Tags, favorite.ID)
	}
}

func TestReconcileAuthoritativeKeepsDetectedTags(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	hdr := client.addTag("hdr")
	client.items[1].Tags = []int64{hdr.ID}

	engine := NewEngine(client, staticDetector(detect.AttrHDR10), detect.DefaultMapping(), PolicyAuthoritative)

	result, err := engine.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeNoop {
		t.Errorf("outcome = %s, want noop (still detected)", result.Outcome)
	}
	if got := client.setCalls[1]; got != 0 {
		t.Errorf("SetItemTags calls = %d, want 0", got)
	}
}

func TestReconcileAnalysisFailureDegrades(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	favorite := client.addTag("favorite")
	client.items[1].Tags = []int64{favorite.ID}

	failing := detect.DetectorFunc(func(ctx context.Context, item *models.Item) ([]detect.Attribute, error) {
		return nil, fmt.Errorf("%w: unreadable container", detect.ErrAnalysisFailed)
	})
	engine := NewEngine(client, failing, detect.DefaultMapping(), PolicyAdditive)

	// Analysis failure means zero attributes this pass, not a failed item.
	result, err := engine.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeNoop {
		t.Errorf("outcome = %s, want noop", result.Outcome)
	}
	if got := client.setCalls[1]; got != 0 {
		t.Errorf("SetItemTags calls = %d, want 0", got)
	}
}

func TestReconcileDetectorErrorFailsItem(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	broken := detect.DetectorFunc(func(ctx context.Context, item *models.Item) ([]detect.Attribute, error) {
		return nil, errors.New("detector panic-adjacent failure")
	})
	engine := NewEngine(client, broken, detect.DefaultMapping(), PolicyAdditive)

	result, err := engine.Reconcile(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for non-analysis detector failure")
	}
	if result.Outcome != models.OutcomeFailed {
		t.Errorf("outcome = %s, want failed", result.Outcome)
	}
}

func TestReconcileMissingItemFails(t *testing.T) {
	client := newFakeClient()
	engine := NewEngine(client, staticDetector(), detect.DefaultMapping(), PolicyAdditive)

	result, err := engine.Reconcile(context.Background(), 99)
	if !errors.Is(err, arr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if result.Outcome != models.OutcomeFailed {
		t.Errorf("outcome = %s, want failed", result.Outcome)
	}
	if result.Error == "" {
		t.Error("failed result should carry the error message")
	}
}

func TestReconcileSameItemSerializes(t *testing.T) {
	// Two concurrent reconciliations of the same item: the per-item lock
	// serializes the whole read-write window, so the loser reads the
	// winner's write and becomes a noop. Exactly one write total.
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	engine := NewEngine(client, staticDetector(detect.AttrHDR10), detect.DefaultMapping(), PolicyAdditive)

	const workers = 8
	var wg sync.WaitGroup
	outcomes := make([]models.Outcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := engine.Reconcile(context.Background(), 1)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			outcomes[i] = result.Outcome
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, o := range outcomes {
		if o == models.OutcomeApplied {
			applied++
		}
	}
	if applied != 1 {
		t.Errorf("applied outcomes = %d, want exactly 1", applied)
	}
	if got := client.setCalls[1]; got != 1 {
		t.Errorf("SetItemTags calls = %d, want exactly 1", got)
	}
}

func TestReconcileUnmappedAttributeSkipped(t *testing.T) {
	client := newFakeClient(&models.Item{ID: 1, Tags: []int64{}})
	// Mapping without dolby_vision: the detection has nowhere to go.
	mapping := detect.Mapping{detect.AttrHDR10: "hdr"}
	engine := NewEngine(client, staticDetector(detect.AttrDolbyVision), mapping, PolicyAdditive)

	result, err := engine.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Outcome != models.OutcomeNoop {
		t.Errorf("outcome = %s, want noop", result.Outcome)
	}
	if tags, _ := client.ListTags(context.Background()); len(tags) != 0 {
		t.Errorf("no tag should have been created, got %v", tags)
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
