// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package detect

import (
	"context"
	"errors"

	"github.com/tomtom215/tagarr/internal/models"
)

// ErrAnalysisFailed indicates the detector could not analyze the item.
// The reconciliation engine treats this as "no attributes detected this
// pass": it logs a warning and continues, so a single unreadable file never
// fails a library pass.
var ErrAnalysisFailed = errors.New("analysis failed")

// Detector inspects a library item and reports its content attributes.
//
// Implementations must be safe for concurrent use; the orchestrator calls
// Detect from multiple reconciliation workers at once.
type Detector interface {
	Detect(ctx context.Context, item *models.Item) ([]Attribute, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, item *models.Item) ([]Attribute, error)

func (f DetectorFunc) Detect(ctx context.Context, item *models.Item) ([]Attribute, error) {
	return f(ctx, item)
}
