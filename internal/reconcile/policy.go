// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package reconcile

import (
	"fmt"
	"sort"

	"github.com/tomtom215/tagarr/internal/models"
)

// Policy selects how the desired tag set is derived from detections.
type Policy string

const (
	// PolicyAdditive unions detected tags into the current set. Existing
	// tags are never removed, whatever their origin.
	PolicyAdditive Policy = "additive"

	// PolicyAuthoritative makes detection authoritative for mapped labels
	// only: a mapped tag the detector no longer reports is removed, but
	// tags outside the mapping table (user-applied labels like "favorite")
	// are always preserved. Opt-in, since it removes tags.
	PolicyAuthoritative Policy = "authoritative"
)

// ParsePolicy validates a policy string from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAdditive:
		return PolicyAdditive, nil
	case PolicyAuthoritative:
		return PolicyAuthoritative, nil
	default:
		return "", fmt.Errorf("unknown reconcile policy %q (want %q or %q)", s, PolicyAdditive, PolicyAuthoritative)
	}
}

// desiredTags computes the target tag set for an item.
//
//   - current: the item's tags as just read from the remote
//   - resolved: tag IDs for the attributes detected this pass
//   - managed: all remote tag IDs whose label belongs to the mapping table
//
// Additive returns current ∪ resolved. Authoritative returns
// (current − managed) ∪ resolved: only mapped labels are subject to
// removal, so the policy can never touch tags it does not own.
func desiredTags(policy Policy, current, resolved []int64, managed map[int64]bool) []int64 {
	desired := make(map[int64]bool, len(current)+len(resolved))

	for _, id := range current {
		if policy == PolicyAuthoritative && managed[id] {
			continue
		}
		desired[id] = true
	}
	for _, id := range resolved {
		desired[id] = true
	}

	out := make([]int64, 0, len(desired))
	for id := range desired {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sameTagSet compares two tag ID slices as sets.
func sameTagSet(a, b []int64) bool {
	as, bs := setOf(a), setOf(b)
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if !bs[id] {
			return false
		}
	}
	return true
}

func setOf(ids []int64) map[int64]bool {
	s := make(map[int64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// diffTagSets computes which IDs the write adds and removes relative to
// the current set.
func diffTagSets(current, desired []int64) models.TagDiff {
	cur, des := setOf(current), setOf(desired)

	var diff models.TagDiff
	for id := range des {
		if !cur[id] {
			diff.Added = append(diff.Added, id)
		}
	}
	for id := range cur {
		if !des[id] {
			diff.Removed = append(diff.Removed, id)
		}
	}
	sort.Slice(diff.Added, func(i, j int) bool { return diff.Added[i] < diff.Added[j] })
	sort.Slice(diff.Removed, func(i, j int) bool { return diff.Removed[i] < diff.Removed[j] })
	return diff
}
