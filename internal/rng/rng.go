// Package rng derives independent deterministic random streams from one seed.
package rng

import (
	"hash/fnv"
	"math/rand/v2"
)

// Source hands out labelled streams.
type Source struct {
	seed uint64
}

// New returns a Source for seed.
func New(seed int64) Source {
	return Source{seed: uint64(seed)}
}

// Seed returns the run seed.
func (s Source) Seed() int64 {
	return int64(s.seed)
}

// Stream returns a fresh generator for label. The same seed and label always
// yield the same sequence, independent of call order.
func (s Source) Stream(label string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(label)) //nolint:errcheck
	return rand.New(rand.NewPCG(s.seed, h.Sum64()))
}

// Pick returns a uniformly chosen element of items. items must be non-empty.
func Pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// PickN returns up to n distinct elements of items in a random order.
func PickN[T any](r *rand.Rand, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	idx := r.Perm(len(items))[:n]
	out := make([]T, n)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

// Between returns an int in [lo, hi].
func Between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
