// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package arr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for remote *arr API failures.
//
// Only ErrUnreachable is transient and eligible for transport-layer retry.
// The other classes are terminal for the current call: retrying an
// authentication failure, a missing item, or a validation conflict cannot
// succeed without external intervention.
var (
	// ErrUnreachable indicates a network failure, timeout, or 5xx from
	// the remote. Retried at the transport layer with exponential backoff.
	ErrUnreachable = errors.New("remote unreachable")

	// ErrAuthFailed indicates rejected credentials (401/403). Credentials
	// are pass-wide, so the orchestrator aborts remaining dispatch when it
	// sees this.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the remote no longer has the resource (404).
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the remote rejected the request for validation
	// reasons, or the resource changed since it was read (400/409/422).
	ErrConflict = errors.New("conflict")
)

// classifyStatus maps an HTTP status code to the error taxonomy.
// Returns nil for 2xx.
func classifyStatus(code int, body string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthFailed, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrNotFound, code)
	case code == http.StatusBadRequest || code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", ErrConflict, code, body)
	default:
		// 5xx and anything unexpected is treated as transient.
		return fmt.Errorf("%w: status %d: %s", ErrUnreachable, code, body)
	}
}

// classifyTransport maps a transport-level error (connection refused, DNS
// failure, timeout) to the taxonomy. Context cancellation is passed through
// untouched so callers can distinguish a canceled pass from a flaky remote.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// IsRetryable reports whether the error is transient and worth retrying
// at the transport layer.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
