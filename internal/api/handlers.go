// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/reconcile"
	"github.com/tomtom215/tagarr/internal/store"
)

// ServiceHandle bundles everything the API needs for one configured remote
// service. Services that are not configured have no handle.
type ServiceHandle struct {
	Name         string
	URL          string
	Client       arr.Client
	Orchestrator *reconcile.Orchestrator
}

// Handler implements all HTTP endpoints.
type Handler struct {
	services  map[string]*ServiceHandle
	history   store.HistoryStore
	version   string
	startTime time.Time

	// testClientFactory builds a throwaway client for test-connection
	// requests. Replaceable in tests.
	testClientFactory func(service string, opts arr.Options) (arr.Client, error)
}

// NewHandler creates the API handler. history may be nil when run
// persistence is disabled.
func NewHandler(handles []*ServiceHandle, history store.HistoryStore, version string) *Handler {
	services := make(map[string]*ServiceHandle, len(handles))
	for _, h := range handles {
		services[h.Name] = h
	}
	return &Handler{
		services:          services,
		history:           history,
		version:           version,
		startTime:         time.Now(),
		testClientFactory: newTestClient,
	}
}

func newTestClient(service string, opts arr.Options) (arr.Client, error) {
	switch service {
	case arr.ServiceSonarr:
		return arr.NewSonarrClient(opts)
	case arr.ServiceRadarr:
		return arr.NewRadarrClient(opts)
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}

// serviceHandle resolves the {service} path parameter to its handle.
// Returns nil after writing a response when the service is unknown or
// not configured.
func (h *Handler) serviceHandle(w http.ResponseWriter, r *http.Request) *ServiceHandle {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "service")

	if name != arr.ServiceSonarr && name != arr.ServiceRadarr {
		rw.NotFound(fmt.Sprintf("unknown service %q", name))
		return nil
	}

	handle, ok := h.services[name]
	if !ok {
		rw.ServiceUnavailable(fmt.Sprintf("%s is not configured", name))
		return nil
	}
	return handle
}

// respondUpstreamError maps a remote client error to an HTTP response.
func respondUpstreamError(w http.ResponseWriter, r *http.Request, service string, err error) {
	rw := NewResponseWriter(w, r)

	logging.Ctx(r.Context()).Error().
		Err(err).
		Str("service", service).
		Msg("Upstream request failed")

	switch {
	case errors.Is(err, arr.ErrAuthFailed):
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamAuthFailed,
			fmt.Sprintf("%s rejected the configured API key", service))
	case errors.Is(err, arr.ErrNotFound):
		rw.NotFound(fmt.Sprintf("%s resource not found", service))
	case errors.Is(err, arr.ErrConflict):
		rw.Conflict(fmt.Sprintf("%s rejected the request: %v", service, err))
	case errors.Is(err, arr.ErrUnreachable):
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamFailed,
			fmt.Sprintf("%s is unreachable", service))
	default:
		rw.InternalError("internal error")
	}
}
