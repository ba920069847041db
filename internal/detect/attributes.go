// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package detect defines content attribute detection for Tagarr.
//
// A Detector inspects a library item and reports which content attributes
// (HDR10, Dolby Vision, IMAX Enhanced, ...) apply to it. Detections are
// never persisted; they are recomputed on every reconciliation pass.
//
// The Mapping translates each attribute to the canonical remote tag label
// the reconciler maintains. Making the mapping an explicit configuration
// structure (rather than inferred behavior) is what allows the reconciler's
// policy semantics to be testable: the authoritative policy's removal scope
// is defined exactly by the mapping's label set.
package detect

import (
	"fmt"
	"sort"

	"github.com/tomtom215/tagarr/internal/arr"
)

// Attribute is a content characteristic inferred for a media item.
type Attribute string

const (
	AttrHDR10           Attribute = "hdr10"
	AttrHDR10Plus       Attribute = "hdr10plus"
	AttrDolbyVision     Attribute = "dolby_vision"
	AttrIMAXEnhanced    Attribute = "imax_enhanced"
	AttrExtendedEdition Attribute = "extended_edition"
)

// KnownAttributes lists every attribute Tagarr can detect.
var KnownAttributes = []Attribute{
	AttrHDR10,
	AttrHDR10Plus,
	AttrDolbyVision,
	AttrIMAXEnhanced,
	AttrExtendedEdition,
}

// Mapping translates detected attributes to canonical remote tag labels.
type Mapping map[Attribute]string

// DefaultMapping returns the built-in attribute-to-label table.
func DefaultMapping() Mapping {
	return Mapping{
		AttrHDR10:           "hdr",
		AttrHDR10Plus:       "hdr10plus",
		AttrDolbyVision:     "dolby-vision",
		AttrIMAXEnhanced:    "imax-enhanced",
		AttrExtendedEdition: "extended-edition",
	}
}

// MappingFromConfig builds a mapping from configuration overrides layered
// over the defaults. Keys are attribute names; values are tag labels.
func MappingFromConfig(overrides map[string]string) (Mapping, error) {
	m := DefaultMapping()
	for attr, label := range overrides {
		m[Attribute(attr)] = label
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that every mapped attribute is known and every label is
// non-empty after canonicalization, and that no two attributes collapse to
// the same canonical label.
func (m Mapping) Validate() error {
	known := make(map[Attribute]bool, len(KnownAttributes))
	for _, a := range KnownAttributes {
		known[a] = true
	}

	seen := make(map[string]Attribute, len(m))
	for attr, label := range m {
		if !known[attr] {
			return fmt.Errorf("unknown attribute %q in mapping", attr)
		}
		canonical := arr.CanonicalLabel(label)
		if canonical == "" {
			return fmt.Errorf("attribute %q maps to an empty label", attr)
		}
		if prev, dup := seen[canonical]; dup {
			return fmt.Errorf("attributes %q and %q both map to label %q", prev, attr, canonical)
		}
		seen[canonical] = attr
	}
	return nil
}

// Label returns the canonical tag label for an attribute, or false when the
// attribute is not mapped (unmapped detections are ignored by the engine).
func (m Mapping) Label(attr Attribute) (string, bool) {
	label, ok := m[attr]
	if !ok {
		return "", false
	}
	return arr.CanonicalLabel(label), true
}

// Labels returns the set of all canonical labels the mapping manages,
// sorted for deterministic iteration. This set defines the scope of the
// authoritative policy: only these labels are ever removed.
func (m Mapping) Labels() []string {
	labels := make([]string, 0, len(m))
	for _, label := range m {
		labels = append(labels, arr.CanonicalLabel(label))
	}
	sort.Strings(labels)
	return labels
}

// Manages reports whether the given label (canonicalized) is part of the
// mapping table.
func (m Mapping) Manages(label string) bool {
	canonical := arr.CanonicalLabel(label)
	for _, l := range m {
		if arr.CanonicalLabel(l) == canonical {
			return true
		}
	}
	return false
}
