// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package detect

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tomtom215/tagarr/internal/models"
)

// SignalDetector infers attributes from release-name tokens in the item's
// library path and title. It never opens media files, so it is cheap enough
// to run on every pass; a container-level bitstream analyzer can be swapped
// in behind the Detector interface without touching the reconciler.
//
// Token matching follows scene/P2P release naming conventions:
//   - HDR10:        "HDR", "HDR10" (but not "HDR10+")
//   - HDR10+:       "HDR10+", "HDR10Plus"
//   - Dolby Vision: "DV", "DoVi", "Dolby.Vision"
//   - IMAX:         "IMAX"
//   - Extended:     "Extended", "Extended.Cut", "Extended.Edition"
type SignalDetector struct{}

// NewSignalDetector creates a release-name signal detector.
func NewSignalDetector() *SignalDetector {
	return &SignalDetector{}
}

// tokenSplit breaks a release name into comparable tokens. Dots, dashes,
// underscores, and brackets are all used as separators in the wild.
var tokenSplit = regexp.MustCompile(`[.\-_\s\[\]()]+`)

func (d *SignalDetector) Detect(_ context.Context, item *models.Item) ([]Attribute, error) {
	name := filepath.Base(item.Path) + " " + item.Title
	tokens := tokenSplit.Split(strings.ToLower(name), -1)

	found := make(map[Attribute]bool)
	for i, tok := range tokens {
		switch tok {
		case "hdr", "hdr10":
			found[AttrHDR10] = true
		case "hdr10+", "hdr10plus":
			found[AttrHDR10Plus] = true
		case "dv", "dovi":
			found[AttrDolbyVision] = true
		case "dolby":
			if i+1 < len(tokens) && tokens[i+1] == "vision" {
				found[AttrDolbyVision] = true
			}
		case "imax":
			found[AttrIMAXEnhanced] = true
		case "extended":
			found[AttrExtendedEdition] = true
		}
	}

	attrs := make([]Attribute, 0, len(found))
	for _, a := range KnownAttributes {
		if found[a] {
			attrs = append(attrs, a)
		}
	}
	return attrs, nil
}
