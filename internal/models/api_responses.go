// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package models

import "time"

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
//
// Success:
//
//	{"status": "success", "data": {...}, "metadata": {...}}
//
// Error:
//
//	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "...", "message": "..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count,omitempty"`
	TookMs    int64     `json:"took_ms,omitempty"`
}

// APIError carries a machine-readable error code and a human-readable message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ServiceStatus reports whether a remote service is configured and reachable.
// This is the payload of GET /api/v1/{sonarr|radarr}/status and of the
// test-connection endpoints.
type ServiceStatus struct {
	Service    string `json:"service"`
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Version    string `json:"version,omitempty"`
	URL        string `json:"url,omitempty"`
	Error      string `json:"error,omitempty"`
}
