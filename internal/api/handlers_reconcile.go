// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"net/http"

	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/models"
)

// Reconcile triggers a reconciliation pass and returns its summary.
// POST /api/v1/reconcile/{service}
//
// The pass runs synchronously on the request: a trigger with no item_ids
// reconciles the full library, which can take a while against a slow
// remote, but the summary is only meaningful once the pass finishes.
// Clients that want fire-and-forget can drop the connection; the pass is
// canceled with it.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	handle := h.serviceHandle(w, r)
	if handle == nil {
		return
	}
	rw := NewResponseWriter(w, r)

	var req ReconcileRequest
	if apiErr := decodeOptionalRequest(r, &req); apiErr != nil {
		rw.ValidationError(apiErr)
		return
	}

	var summary *models.RunSummary
	if len(req.ItemIDs) == 0 {
		var err error
		summary, err = handle.Orchestrator.RunPassAll(r.Context())
		if err != nil {
			respondUpstreamError(w, r, handle.Name, err)
			return
		}
	} else {
		summary = handle.Orchestrator.RunPass(r.Context(), req.ItemIDs)
	}

	if h.history != nil {
		if err := h.history.Save(summary); err != nil {
			logging.Ctx(r.Context()).Error().
				Err(err).
				Str("run_id", summary.RunID).
				Msg("Failed to persist run summary")
		}
	}

	rw.Success(summary)
}
