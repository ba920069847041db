// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tagarr/internal/arr"
)

// HealthResponse is the payload of GET /api/v1/health.
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	UptimeMs int64           `json:"uptime_ms"`
	Services map[string]bool `json:"services"`
}

// Health reports overall process health and which services are configured.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	services := map[string]bool{
		arr.ServiceSonarr: false,
		arr.ServiceRadarr: false,
	}
	for name := range h.services {
		services[name] = true
	}

	NewResponseWriter(w, r).Success(HealthResponse{
		Status:   "ok",
		Version:  h.version,
		UptimeMs: time.Since(h.startTime).Milliseconds(),
		Services: services,
	})
}

// HealthLive is the liveness probe: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe. Ready means at least one remote
// service is configured; with nothing configured there is no work the
// instance could do.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if len(h.services) == 0 {
		rw.ServiceUnavailable("no remote services configured")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
