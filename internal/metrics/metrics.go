// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package metrics provides Prometheus instrumentation for Tagarr.
//
// Exposed metric families:
//   - Remote API client requests, retries, and latency
//   - Circuit breaker state and transitions
//   - Reconciliation pass outcomes and durations
//   - HTTP endpoint latency
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote API client metrics

	ClientRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagarr_arr_requests_total",
			Help: "Total remote *arr API requests by service, operation, and result",
		},
		[]string{"service", "operation", "result"},
	)

	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagarr_arr_request_duration_seconds",
			Help:    "Duration of remote *arr API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	ClientRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagarr_arr_retries_total",
			Help: "Total transport-layer retries against the remote *arr API",
		},
		[]string{"service", "operation"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tagarr_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagarr_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagarr_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"},
	)

	// Reconciliation metrics

	ReconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagarr_reconcile_items_total",
			Help: "Total per-item reconciliation outcomes",
		},
		[]string{"service", "outcome"},
	)

	ReconcileInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tagarr_reconcile_in_flight",
			Help: "Number of item reconciliations currently running",
		},
		[]string{"service"},
	)

	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagarr_passes_total",
			Help: "Total reconciliation passes by service and result",
		},
		[]string{"service", "result"},
	)

	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagarr_pass_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagarr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RecordClientRequest records a remote API request with its result and duration.
func RecordClientRequest(service, operation, result string, duration time.Duration) {
	ClientRequests.WithLabelValues(service, operation, result).Inc()
	ClientRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordPass records a completed reconciliation pass.
func RecordPass(service, result string, duration time.Duration) {
	PassesTotal.WithLabelValues(service, result).Inc()
	PassDuration.WithLabelValues(service).Observe(duration.Seconds())
}
