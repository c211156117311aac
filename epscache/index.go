package epscache

import "math"

// Index mapping constants. These are frozen by the layout of previously
// persisted cache files: the fine region covers constants in [0, 50] at
// 10,000 buckets per unit, the coarse region covers (50, 700,050] at one
// bucket per unit, offset by the fine region size. Changing any of them
// invalidates every cache file ever written.
const (
	// FineThreshold is the largest constant mapped at fine granularity.
	FineThreshold = 50.0
	// FineBuckets is the number of fine buckets per unit constant.
	FineBuckets = 10_000
	// FineRegionSize is the number of indices occupied by the fine region.
	FineRegionSize = 500_000
	// MaxCacheableConstant is the largest constant a full-size cache can map.
	MaxCacheableConstant = 700_050.0
)

// ToIndex maps an RDP constant to its cache index. The mapping is monotone
// non-decreasing and never negative.
func ToIndex(c float64) int {
	if c <= FineThreshold {
		idx := int(math.Floor(c*FineBuckets)) - 1
		if idx < 0 {
			return 0
		}
		return idx
	}
	return int(math.Floor(c)) - 51 + FineRegionSize
}

// Indices is the vectorized form of ToIndex.
func Indices(constants []float64) []int {
	out := make([]int, len(constants))
	for i, c := range constants {
		out[i] = ToIndex(c)
	}
	return out
}
