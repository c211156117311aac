package epscache_test

import (
	"testing"

	"github.com/xraph/dpledger/epscache"
)

func TestToIndexBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		constant float64
		want     int
	}{
		{"zero clamps to zero", 0.0, 0},
		{"tiny clamps to zero", 0.00001, 0},
		{"first fine bucket", 0.0001, 0},
		{"half unit", 0.5, 4_999},
		{"one unit", 1.0, 9_999},
		{"fine region end", 50.0, 499_999},
		{"just above fine threshold", 50.0000001, 499_999},
		{"first coarse unit", 51.0, 500_000},
		{"coarse mid-range", 100.5, 500_049},
		{"largest cacheable", epscache.MaxCacheableConstant, 1_199_999},
		{"past the shipped cache", 700_051.0, 1_200_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := epscache.ToIndex(tt.constant); got != tt.want {
				t.Errorf("ToIndex(%v) = %d, want %d", tt.constant, got, tt.want)
			}
		})
	}
}

func TestToIndexMonotone(t *testing.T) {
	constants := []float64{
		0, 0.0001, 0.01, 0.5, 1, 2.5, 10, 49.9999, 50,
		50.5, 51, 52, 100, 1_000, 500_000, 700_050, 800_000,
	}
	for i := 1; i < len(constants); i++ {
		lo, hi := epscache.ToIndex(constants[i-1]), epscache.ToIndex(constants[i])
		if lo > hi {
			t.Errorf("ToIndex(%v) = %d > ToIndex(%v) = %d", constants[i-1], lo, constants[i], hi)
		}
	}
}

func TestToIndexNeverNegative(t *testing.T) {
	for _, c := range []float64{0, 1e-9, 0.00005, 0.0001} {
		if got := epscache.ToIndex(c); got < 0 {
			t.Errorf("ToIndex(%v) = %d, want >= 0", c, got)
		}
	}
}

func TestIndices(t *testing.T) {
	constants := []float64{0.5, 50.0, 51.0}
	want := []int{4_999, 499_999, 500_000}

	got := epscache.Indices(constants)
	if len(got) != len(want) {
		t.Fatalf("Indices returned %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Indices[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
