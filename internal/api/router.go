// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router with the given handler and default API rate
// limit parameters.
func NewRouter(handler *Handler, rateLimitRequests int, rateLimitWindow time.Duration) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(rateLimitRequests, rateLimitWindow),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints: permissive rate limiting so monitoring probes
	// are never rejected.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Per-service read endpoints.
	r.Route("/api/v1/{service:sonarr|radarr}", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Get("/status", router.handler.ServiceStatus)
		r.Get("/items", router.handler.Items)
		r.Get("/tags", router.handler.Tags)
		r.Post("/test-connection", router.handler.TestConnection)
	})

	// Reconcile triggers: strict rate limiting, each trigger fans out
	// into remote API traffic.
	r.Route("/api/v1/reconcile", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitReconcile())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Post("/{service:sonarr|radarr}", router.handler.Reconcile)
	})

	// Run history.
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Get("/", router.handler.Runs)
		r.Get("/{id}", router.handler.Run)
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
