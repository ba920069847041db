// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package arr provides the remote tag store client abstraction over the
// Sonarr and Radarr API v3 contract.
//
// File organization:
//   - client.go: Client interface, shared transport, retry, rate limiting,
//     and the tag/system operations common to both flavors
//   - items.go: item normalization and the full-object write path
//   - sonarr.go / radarr.go: backend flavors (resource paths)
//   - circuit_breaker.go: gobreaker wrapper
//   - errors.go: error taxonomy (Unreachable / AuthFailed / NotFound / Conflict)
package arr
