package domain

import (
	"slices"
	"strings"
)

// Merge combines a remote list with the local list.
//
// Remote entries come first, de-duplicated by key (first occurrence wins).
// Local entries whose key is not already present follow in local order.
// The result is stably sorted by Text using plain byte-wise comparison.
func Merge(remote, local []Quote) []Quote {
	seen := make(map[Key]struct{}, len(remote)+len(local))
	merged := make([]Quote, 0, len(remote)+len(local))

	for _, q := range remote {
		if _, ok := seen[q.Key()]; ok {
			continue
		}
		seen[q.Key()] = struct{}{}
		merged = append(merged, q)
	}

	for _, q := range local {
		if _, ok := seen[q.Key()]; ok {
			continue
		}
		seen[q.Key()] = struct{}{}
		merged = append(merged, q)
	}

	slices.SortStableFunc(merged, func(a, b Quote) int {
		return strings.Compare(a.Text, b.Text)
	})

	return merged
}

// LocalOnly returns the local quotes whose key is absent from remote.
// Each key is reported once, in local order.
func LocalOnly(local, remote []Quote) []Quote {
	known := make(map[Key]struct{}, len(remote))
	for _, q := range remote {
		known[q.Key()] = struct{}{}
	}

	var out []Quote
	for _, q := range local {
		if _, ok := known[q.Key()]; ok {
			continue
		}
		known[q.Key()] = struct{}{}
		out = append(out, q)
	}

	return out
}

// Equal reports order-sensitive equality of two quote lists.
func Equal(a, b []Quote) bool {
	return slices.Equal(a, b)
}
