// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package validation

import (
	"strings"
	"testing"
)

type connectionForm struct {
	URL    string `validate:"required,http_url"`
	APIKey string `validate:"required,min=1"`
}

type limitForm struct {
	Limit int `validate:"min=1,max=500"`
}

type policyForm struct {
	Policy string `validate:"oneof=additive authoritative"`
}

func TestValidateStructValid(t *testing.T) {
	if err := ValidateStruct(&connectionForm{URL: "http://sonarr:8989", APIKey: "k"}); err != nil {
		t.Errorf("valid struct failed: %v", err)
	}
	if err := ValidateStruct(&limitForm{Limit: 50}); err != nil {
		t.Errorf("valid limit failed: %v", err)
	}
}

func TestValidateStructMessages(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		field   string
		tag     string
		wantSub string
	}{
		{
			name:    "missing required",
			input:   &connectionForm{URL: "http://sonarr:8989"},
			field:   "APIKey",
			tag:     "required",
			wantSub: "APIKey is required",
		},
		{
			name:    "bad url",
			input:   &connectionForm{URL: "not-a-url", APIKey: "k"},
			field:   "URL",
			tag:     "http_url",
			wantSub: "URL must be a valid http or https URL",
		},
		{
			name:    "numeric min",
			input:   &limitForm{Limit: 0},
			field:   "Limit",
			tag:     "min",
			wantSub: "Limit must be at least 1",
		},
		{
			name:    "numeric max",
			input:   &limitForm{Limit: 501},
			field:   "Limit",
			tag:     "max",
			wantSub: "Limit must be at most 500",
		},
		{
			name:    "oneof",
			input:   &policyForm{Policy: "destructive"},
			field:   "Policy",
			tag:     "oneof",
			wantSub: "Policy must be one of: additive authoritative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			fields := err.Fields()
			if len(fields) != 1 {
				t.Fatalf("got %d field errors, want 1: %v", len(fields), fields)
			}
			fe := fields[0]
			if fe.Field != tt.field || fe.Tag != tt.tag {
				t.Errorf("field/tag = %s/%s, want %s/%s", fe.Field, fe.Tag, tt.field, tt.tag)
			}
			if !strings.Contains(fe.Message, tt.wantSub) {
				t.Errorf("message %q does not contain %q", fe.Message, tt.wantSub)
			}
		})
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	err := ValidateStruct(&connectionForm{URL: "http://sonarr:8989"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "APIKey" || apiErr.Details["tag"] != "required" {
		t.Errorf("details = %v", apiErr.Details)
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	err := ValidateStruct(&connectionForm{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := len(err.Fields()); got != 2 {
		t.Fatalf("field errors = %d, want 2", got)
	}
	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Errorf("multi-field details missing fields list: %v", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("message %q should join all failures", apiErr.Message)
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator must return the same instance")
	}
}
