// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/models"
)

// statusProbeTimeout bounds the upstream call made by the status and
// test-connection endpoints so a hung remote cannot hold the request open.
const statusProbeTimeout = 15 * time.Second

// ServiceStatus reports configuration and connectivity for one service.
// GET /api/v1/{service}/status
func (h *Handler) ServiceStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "service")

	if name != arr.ServiceSonarr && name != arr.ServiceRadarr {
		rw.NotFound(fmt.Sprintf("unknown service %q", name))
		return
	}

	handle, ok := h.services[name]
	if !ok {
		rw.Success(models.ServiceStatus{Service: name, Configured: false})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statusProbeTimeout)
	defer cancel()

	status := models.ServiceStatus{
		Service:    name,
		Configured: true,
		URL:        handle.URL,
	}

	sys, err := handle.Client.SystemStatus(ctx)
	if err != nil {
		status.Error = err.Error()
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("service", name).
			Msg("Status probe failed")
	} else {
		status.Connected = true
		status.Version = sys.Version
	}

	rw.Success(status)
}

// TestConnection verifies credentials supplied in the request body without
// touching the running configuration.
// POST /api/v1/{service}/test-connection
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "service")

	if name != arr.ServiceSonarr && name != arr.ServiceRadarr {
		rw.NotFound(fmt.Sprintf("unknown service %q", name))
		return
	}

	var req TestConnectionRequest
	if apiErr := decodeRequest(r, &req); apiErr != nil {
		rw.ValidationError(apiErr)
		return
	}

	client, err := h.testClientFactory(name, arr.Options{
		URL:     req.URL,
		APIKey:  req.APIKey,
		Timeout: statusProbeTimeout,
		// Single attempt: the caller wants a prompt verdict, not retries.
		RetryAttempts: 1,
	})
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statusProbeTimeout)
	defer cancel()

	status := models.ServiceStatus{
		Service:    name,
		Configured: true,
		URL:        req.URL,
	}

	sys, err := client.SystemStatus(ctx)
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Connected = true
		status.Version = sys.Version
	}

	rw.Success(status)
}

// Items lists the remote library normalized to the common item shape.
// GET /api/v1/{service}/items
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	handle := h.serviceHandle(w, r)
	if handle == nil {
		return
	}

	items, err := handle.Client.ListItems(r.Context())
	if err != nil {
		respondUpstreamError(w, r, handle.Name, err)
		return
	}

	NewResponseWriter(w, r).SuccessWithCount(items, len(items))
}

// Tags lists all tags known to the remote service.
// GET /api/v1/{service}/tags
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	handle := h.serviceHandle(w, r)
	if handle == nil {
		return
	}

	tags, err := handle.Client.ListTags(r.Context())
	if err != nil {
		respondUpstreamError(w, r, handle.Name, err)
		return
	}

	NewResponseWriter(w, r).SuccessWithCount(tags, len(tags))
}
