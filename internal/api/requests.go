// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tagarr/internal/models"
	"github.com/tomtom215/tagarr/internal/validation"
)

// TestConnectionRequest is the request body for POST /{service}/test-connection.
// Credentials are supplied in the body so a connection can be verified before
// it is written to the configuration.
type TestConnectionRequest struct {
	URL    string `json:"url" validate:"required,http_url"`
	APIKey string `json:"api_key" validate:"required,min=1"`
}

// ReconcileRequest is the request body for POST /reconcile/{service}.
// An empty or omitted item_ids list reconciles the full library.
type ReconcileRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"omitempty,dive,gt=0"`
}

// RunsRequest holds the validated query parameters for GET /runs.
type RunsRequest struct {
	Limit int `validate:"min=1,max=500"`
}

// maxRequestBody caps request body reads. None of the accepted bodies are
// legitimately large.
const maxRequestBody = 1 << 20

// decodeRequest decodes a JSON request body into dst and validates it.
// Returns an *models.APIError suitable for a 400 response on failure.
func decodeRequest(r *http.Request, dst interface{}) *models.APIError {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return &models.APIError{
			Code:    ErrCodeBadRequest,
			Message: fmt.Sprintf("invalid request body: %v", err),
		}
	}

	if validationErr := validation.ValidateStruct(dst); validationErr != nil {
		return validationErr.ToAPIError()
	}
	return nil
}

// decodeOptionalRequest is decodeRequest for endpoints where an empty body
// is meaningful (e.g. reconcile-everything). dst is left zero on empty body.
func decodeOptionalRequest(r *http.Request, dst interface{}) *models.APIError {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &models.APIError{
			Code:    ErrCodeBadRequest,
			Message: fmt.Sprintf("invalid request body: %v", err),
		}
	}

	if validationErr := validation.ValidateStruct(dst); validationErr != nil {
		return validationErr.ToAPIError()
	}
	return nil
}

// validateRequest validates query/path parameters collected into a struct.
func validateRequest(v interface{}) *models.APIError {
	if validationErr := validation.ValidateStruct(v); validationErr != nil {
		return validationErr.ToAPIError()
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value.
// Anything that is not a whole integer falls back to the default; range
// checks belong to the request struct's validate tags.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}
