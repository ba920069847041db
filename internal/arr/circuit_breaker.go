// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package arr

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/metrics"
	"github.com/tomtom215/tagarr/internal/models"
)

// CircuitBreakerClient wraps a Client with the circuit breaker pattern to
// stop hammering a remote that is down or degraded.
//
// Only ErrUnreachable counts as a breaker failure: auth failures, missing
// items, and conflicts are remote verdicts, not remote outages, and must
// not open the circuit. An open circuit is reported to callers as
// ErrUnreachable since the effect is the same - the remote cannot be
// usefully reached right now.
//
// The breaker uses real time for its interval and timeout calculations.
// Unit tests should exercise the wrapped client directly.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps the given client with a circuit breaker.
// The breaker opens after a 60% failure rate over at least 10 requests,
// waits 2 minutes before probing, and allows 3 concurrent probes half-open.
func NewCircuitBreakerClient(client Client) *CircuitBreakerClient {
	name := client.Service() + "-api"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnreachable)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name}
}

// execute wraps one remote call with circuit breaker protection.
func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: circuit breaker %s: %v", ErrUnreachable, c.name, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts a circuit breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (c *CircuitBreakerClient) Service() string { return c.client.Service() }

func (c *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.Ping(ctx)
	})
	return err
}

func (c *CircuitBreakerClient) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	return castResult[*SystemStatus](c.execute(func() (interface{}, error) {
		return c.client.SystemStatus(ctx)
	}))
}

func (c *CircuitBreakerClient) ListTags(ctx context.Context) ([]models.Tag, error) {
	return castResult[[]models.Tag](c.execute(func() (interface{}, error) {
		return c.client.ListTags(ctx)
	}))
}

func (c *CircuitBreakerClient) CreateTag(ctx context.Context, label string) (models.Tag, error) {
	return castResult[models.Tag](c.execute(func() (interface{}, error) {
		return c.client.CreateTag(ctx, label)
	}))
}

func (c *CircuitBreakerClient) ListItems(ctx context.Context) ([]models.Item, error) {
	return castResult[[]models.Item](c.execute(func() (interface{}, error) {
		return c.client.ListItems(ctx)
	}))
}

func (c *CircuitBreakerClient) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return castResult[*models.Item](c.execute(func() (interface{}, error) {
		return c.client.GetItem(ctx, id)
	}))
}

func (c *CircuitBreakerClient) SetItemTags(ctx context.Context, item *models.Item, tags []int64) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.SetItemTags(ctx, item, tags)
	})
	return err
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
