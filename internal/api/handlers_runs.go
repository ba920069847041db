// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tagarr/internal/store"
)

// Runs lists recent reconciliation runs, newest first.
// GET /api/v1/runs?limit=N
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.history == nil {
		rw.ServiceUnavailable("run history is disabled")
		return
	}

	req := RunsRequest{Limit: getIntParam(r, "limit", 50)}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr)
		return
	}

	runs, err := h.history.List(req.Limit)
	if err != nil {
		rw.InternalError("failed to read run history")
		return
	}

	rw.SuccessWithCount(runs, len(runs))
}

// Run returns one run summary by ID.
// GET /api/v1/runs/{id}
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.history == nil {
		rw.ServiceUnavailable("run history is disabled")
		return
	}

	runID := chi.URLParam(r, "id")
	summary, err := h.history.Get(runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			rw.NotFound("run not found")
			return
		}
		rw.InternalError("failed to read run history")
		return
	}

	rw.Success(summary)
}
