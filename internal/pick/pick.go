// Package pick is the weighted-choice utility shared by persona rotation and
// active-group selection. Both choosers take an exclusion predicate and fall
// back to the unrestricted candidate list when everything is excluded.
package pick

import (
	"math/rand/v2"
)

// Candidate pairs an item with its selection weight.
type Candidate[T any] struct {
	Item   T
	Weight float64
}

// Weighted picks a random candidate with probability proportional to its
// weight, ignoring candidates for which exclude returns true. When every
// candidate is excluded the choice is made over all of them. A pool whose
// weights sum to zero is treated as uniform. r may be nil to use the global
// source. ok is false only for an empty candidate list.
func Weighted[T any](r *rand.Rand, candidates []Candidate[T], exclude func(T) bool) (item T, ok bool) {
	if len(candidates) == 0 {
		return item, false
	}

	pool := allowed(candidates, exclude)

	var total float64
	for _, c := range pool {
		total += max(c.Weight, 0)
	}
	if total <= 0 {
		return pool[intN(r, len(pool))].Item, true
	}

	target := float64Of(r) * total
	for _, c := range pool {
		w := max(c.Weight, 0)
		if target < w {
			return c.Item, true
		}
		target -= w
	}

	// Rounding can leave target just above the last bucket.
	for i := len(pool) - 1; i >= 0; i-- {
		if pool[i].Weight > 0 {
			return pool[i].Item, true
		}
	}
	return pool[len(pool)-1].Item, true
}

// Top deterministically returns the candidate with the greatest weight that
// is not excluded, keeping the earliest on ties. When every candidate is
// excluded it returns the greatest overall.
func Top[T any](candidates []Candidate[T], exclude func(T) bool) (item T, ok bool) {
	if len(candidates) == 0 {
		return item, false
	}

	pool := allowed(candidates, exclude)
	best := pool[0]
	for _, c := range pool[1:] {
		if c.Weight > best.Weight {
			best = c
		}
	}
	return best.Item, true
}

func allowed[T any](candidates []Candidate[T], exclude func(T) bool) []Candidate[T] {
	if exclude == nil {
		return candidates
	}
	pool := make([]Candidate[T], 0, len(candidates))
	for _, c := range candidates {
		if !exclude(c.Item) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return candidates
	}
	return pool
}

func float64Of(r *rand.Rand) float64 {
	if r == nil {
		return rand.Float64()
	}
	return r.Float64()
}

func intN(r *rand.Rand, n int) int {
	if r == nil {
		return rand.IntN(n)
	}
	return r.IntN(n)
}
