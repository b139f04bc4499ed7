// Package sortutil holds small ordering helpers that keep listings deterministic.
package sortutil

import (
	"cmp"
	"slices"
)

// Sorted returns a new slice containing the input values sorted ascending.
// The input slice is not modified.
func Sorted[T cmp.Ordered](in []T) []T {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

// Keys returns the keys of a set in ascending order.
func Keys[K cmp.Ordered, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Union merges any number of sets into a fresh sorted, duplicate-free slice.
func Union[K cmp.Ordered](sets ...[]K) []K {
	seen := make(map[K]struct{})
	for _, s := range sets {
		for _, v := range s {
			seen[v] = struct{}{}
		}
	}
	return Keys(seen)
}
