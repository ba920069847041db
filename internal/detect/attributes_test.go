// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package detect

import (
	"reflect"
	"testing"
)

func TestMappingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mapping Mapping
		wantErr bool
	}{
		{"default mapping is valid", DefaultMapping(), false},
		{"empty mapping is valid", Mapping{}, false},
		{"unknown attribute", Mapping{"8k": "8k"}, true},
		{"empty label", Mapping{AttrHDR10: "   "}, true},
		{
			"label collision after canonicalization",
			Mapping{AttrHDR10: "Dolby Vision", AttrDolbyVision: "dolby-vision"},
			true,
		},
		{
			"distinct labels",
			Mapping{AttrHDR10: "hdr", AttrDolbyVision: "dv"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMappingLabel(t *testing.T) {
	m := Mapping{AttrHDR10: "HDR"}

	label, ok := m.Label(AttrHDR10)
	if !ok || label != "hdr" {
		t.Errorf("Label(hdr10) = %q, %v; want hdr, true", label, ok)
	}
	if _, ok := m.Label(AttrIMAXEnhanced); ok {
		t.Error("unmapped attribute should report false")
	}
}

func TestMappingManages(t *testing.T) {
	m := DefaultMapping()

	tests := []struct {
		label string
		want  bool
	}{
		{"hdr", true},
		{"HDR", true},
		{"dolby-vision", true},
		{"Dolby Vision", true},
		{"favorite", false},
		{"4k", false},
	}
	for _, tt := range tests {
		if got := m.Manages(tt.label); got != tt.want {
			t.Errorf("Manages(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestMappingLabelsSorted(t *testing.T) {
	got := DefaultMapping().Labels()
	want := []string{"dolby-vision", "extended-edition", "hdr", "hdr10plus", "imax-enhanced"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
}

func TestMappingFromConfig(t *testing.T) {
	m, err := MappingFromConfig(map[string]string{"hdr10": "uhd-hdr"})
	if err != nil {
		t.Fatalf("MappingFromConfig: %v", err)
	}

	label, _ := m.Label(AttrHDR10)
	if label != "uhd-hdr" {
		t.Errorf("override not applied: Label(hdr10) = %q", label)
	}
	// Untouched defaults survive.
	label, _ = m.Label(AttrDolbyVision)
	if label != "dolby-vision" {
		t.Errorf("default lost: Label(dolby_vision) = %q", label)
	}

	if _, err := MappingFromConfig(map[string]string{"8k": "8k"}); err == nil {
		t.Error("expected error for unknown attribute override")
	}
}
