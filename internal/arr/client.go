// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package arr implements the remote tag store client for Sonarr and Radarr.
//
// Both services expose the same API v3 contract shape (header-based API-key
// auth, JSON resources, full-object PUT for updates) with different resource
// names: Sonarr manages series, Radarr manages movies. SonarrClient and
// RadarrClient normalize both flavors into the common models.Item/models.Tag
// types so the reconciliation core is backend-agnostic.
//
// Resilience:
//   - Per-call timeout (default 10s)
//   - A single transport-layer retry loop with exponential backoff, applied
//     to ErrUnreachable only. AuthFailed, NotFound, and Conflict are never
//     retried automatically.
//   - Token-bucket rate limiting (golang.org/x/time/rate) to respect
//     remote rate limits.
//   - Optional circuit breaker wrapper (see circuit_breaker.go).
package arr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/metrics"
	"github.com/tomtom215/tagarr/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// Service names.
const (
	ServiceSonarr = "sonarr"
	ServiceRadarr = "radarr"
)

// SystemStatus is the subset of /api/v3/system/status both services share.
type SystemStatus struct {
	Version string `json:"version"`
	AppName string `json:"appName"`
}

// Client is the capability abstraction over a remote *arr tagging API.
//
// The remote is treated as unreliable and rate-limited. All methods accept a
// context for cancellation; network calls are the only suspension points.
// Implementations must be safe for concurrent use.
type Client interface {
	// Service returns "sonarr" or "radarr".
	Service() string

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error

	// SystemStatus returns the remote's version information.
	SystemStatus(ctx context.Context) (*SystemStatus, error)

	// ListTags returns all tags known to the remote.
	ListTags(ctx context.Context) ([]models.Tag, error)

	// CreateTag creates a tag, idempotent by canonicalized label: if a tag
	// with the same canonical label already exists remotely the existing
	// tag is returned. The remote API itself does not guarantee this, so
	// the implementation runs a list-then-create-if-absent protocol.
	CreateTag(ctx context.Context, label string) (models.Tag, error)

	// ListItems returns the full library normalized to models.Item.
	ListItems(ctx context.Context) ([]models.Item, error)

	// GetItem fetches one item fresh from the remote, including the full
	// resource document required for later writes.
	GetItem(ctx context.Context, id int64) (*models.Item, error)

	// SetItemTags replaces the item's tag set. The remote only supports
	// full-object PUT, so the item must carry the Document read by GetItem;
	// the write sends that document back with only the tags field changed.
	SetItemTags(ctx context.Context, item *models.Item, tags []int64) error
}

// CanonicalLabel normalizes a tag label for lookup and creation: lowercase,
// trimmed, with internal whitespace and underscores collapsed to single
// hyphens. Prevents duplicate remote tags differing only in case or spacing.
func CanonicalLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	fields := strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '_'
	})
	return strings.Join(fields, "-")
}

// Options configures a Sonarr or Radarr client.
type Options struct {
	// URL is the remote base URL, e.g. http://localhost:8989.
	URL string

	// APIKey is sent as the X-Api-Key header on every request.
	APIKey string

	// Timeout bounds each individual HTTP call. Default 10s.
	Timeout time.Duration

	// RetryAttempts is the total number of attempts for retryable
	// failures. Default 3.
	RetryAttempts int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	// Default 500ms.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the backoff delay. Default 5s.
	RetryMaxDelay time.Duration

	// RateLimit is the sustained request rate in requests per second.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the rate limiter burst size. Default 10 when
	// RateLimit is set.
	RateBurst int

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 500 * time.Millisecond
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = 5 * time.Second
	}
	if o.RateLimit > 0 && o.RateBurst <= 0 {
		o.RateBurst = 10
	}
}

// transport is the shared HTTP layer under both client flavors.
type transport struct {
	service string
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

func newTransport(service string, opts Options) (*transport, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("%s: URL is required", service)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", service)
	}
	opts.applyDefaults()

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}

	return &transport{
		service:        service,
		baseURL:        strings.TrimRight(opts.URL, "/"),
		apiKey:         opts.APIKey,
		client:         client,
		limiter:        limiter,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxDelay:  opts.RetryMaxDelay,
	}, nil
}

// do executes one HTTP request against the remote, classifying failures into
// the package error taxonomy. No retries at this level.
func (t *transport) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", t.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	// Error bodies are only read for diagnostics, so they are capped.
	// Success bodies must be read in full: a library listing runs to
	// hundreds of kilobytes and a truncated document must never be
	// decoded, let alone written back.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, classifyStatus(resp.StatusCode, truncateBody(snippet))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return data, nil
}

// doRetry wraps do with the single transport-layer retry loop. Only
// ErrUnreachable is retried; backoff doubles from retryBaseDelay up to
// retryMaxDelay. The context cancels waits between attempts.
func (t *transport) doRetry(ctx context.Context, operation, method, path string, payload interface{}) ([]byte, error) {
	start := time.Now()
	var data []byte
	var err error

	delay := t.retryBaseDelay
	for attempt := 0; attempt < t.retryAttempts; attempt++ {
		data, err = t.do(ctx, method, path, payload)
		if err == nil || !IsRetryable(err) {
			break
		}
		if attempt == t.retryAttempts-1 {
			break
		}

		metrics.ClientRetries.WithLabelValues(t.service, operation).Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("service", t.service).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying remote request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			metrics.RecordClientRequest(t.service, operation, "canceled", time.Since(start))
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > t.retryMaxDelay {
			delay = t.retryMaxDelay
		}
	}

	metrics.RecordClientRequest(t.service, operation, resultLabel(err), time.Since(start))
	return data, err
}

// resultLabel maps an error to the metrics result label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}

func truncateBody(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max]) + "... (truncated)"
	}
	return string(data)
}

// Shared operations: the tag and system endpoints are identical in both
// API flavors.

func (t *transport) ping(ctx context.Context) error {
	_, err := t.doRetry(ctx, "ping", http.MethodGet, "/api/v3/system/status", nil)
	return err
}

func (t *transport) systemStatus(ctx context.Context) (*SystemStatus, error) {
	data, err := t.doRetry(ctx, "system_status", http.MethodGet, "/api/v3/system/status", nil)
	if err != nil {
		return nil, err
	}
	var status SystemStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode system status: %w", err)
	}
	return &status, nil
}

func (t *transport) listTags(ctx context.Context) ([]models.Tag, error) {
	data, err := t.doRetry(ctx, "list_tags", http.MethodGet, "/api/v3/tag", nil)
	if err != nil {
		return nil, err
	}
	var tags []models.Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

// createTag runs the list-then-create-if-absent protocol. A concurrent
// creator winning the race surfaces as a Conflict from the POST; the
// follow-up list resolves it to the winner's tag.
func (t *transport) createTag(ctx context.Context, label string) (models.Tag, error) {
	canonical := CanonicalLabel(label)
	if canonical == "" {
		return models.Tag{}, fmt.Errorf("%w: empty tag label", ErrConflict)
	}

	tags, err := t.listTags(ctx)
	if err != nil {
		return models.Tag{}, err
	}
	for _, tag := range tags {
		if CanonicalLabel(tag.Label) == canonical {
			return tag, nil
		}
	}

	data, err := t.doRetry(ctx, "create_tag", http.MethodPost, "/api/v3/tag", map[string]string{"label": canonical})
	if err == nil {
		var tag models.Tag
		if uerr := json.Unmarshal(data, &tag); uerr != nil {
			return models.Tag{}, fmt.Errorf("decode created tag: %w", uerr)
		}
		return tag, nil
	}
	if !errors.Is(err, ErrConflict) {
		return models.Tag{}, err
	}

	// Lost a create race; the tag should exist now.
	tags, lerr := t.listTags(ctx)
	if lerr != nil {
		return models.Tag{}, lerr
	}
	for _, tag := range tags {
		if CanonicalLabel(tag.Label) == canonical {
			return tag, nil
		}
	}
	return models.Tag{}, err
}
