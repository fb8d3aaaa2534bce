// Package ranking provides the per-group score transforms shared by the
// feature, DEI and scoring stages: min-max normalization and dense ranking
// with deterministic tie handling.
package ranking

import "sort"

// MinMaxNormalize rescales values into [0,1] within their group. When the
// group has fewer than two values or all values are equal there is no spread
// to normalize against, and every value maps to the neutral 0.5.
func MinMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if len(values) < 2 || min == max {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	spread := max - min
	for i, v := range values {
		out[i] = (v - min) / spread
	}
	return out
}

// DenseRank ranks scores descending with consecutive integers starting at 1.
// Ties are broken by original position, never by a secondary key: of two
// equal scores, the one that appeared first in the input gets the better
// rank. Reranking the same rows therefore always yields the same ordering.
func DenseRank(scores []float64) []int {
	type indexed struct {
		score float64
		pos   int
	}

	ordered := make([]indexed, len(scores))
	for i, s := range scores {
		ordered[i] = indexed{score: s, pos: i}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].score > ordered[j].score
	})

	ranks := make([]int, len(scores))
	for i, item := range ordered {
		ranks[item.pos] = i + 1
	}
	return ranks
}

// Clamp01 clips v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
