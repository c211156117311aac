package epscache_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/xraph/dpledger/epscache"
)

// smallTable builds a valid synthetic table of n positive entries.
func smallTable(n int) []float64 {
	values := make([]float64, n)
	values[0] = epscache.Sentinel
	for i := 1; i < n; i++ {
		values[i] = 0.01 * float64(i+1)
	}
	return values
}

func TestNewRejectsBadTables(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"zero entry", []float64{1.0, 0.0, 2.0}},
		{"negative entry", []float64{1.0, -0.5}},
		{"nan entry", []float64{1.0, math.NaN()}},
		{"inf entry", []float64{1.0, math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := epscache.New(tt.values); !errors.Is(err, epscache.ErrCacheCorrupt) {
				t.Fatalf("got %v, want ErrCacheCorrupt", err)
			}
		})
	}
}

func TestSpendServesInRangeFromTable(t *testing.T) {
	values := smallTable(10)
	c, err := epscache.New(values)
	if err != nil {
		t.Fatal(err)
	}

	// ToIndex(0.0005) = 4, ToIndex(0.0001) = 0.
	got, err := c.Spend([]float64{0.0005, 0.0001})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != values[4] || got[1] != values[0] {
		t.Errorf("Spend = %v, want [%v %v]", got, values[4], values[0])
	}
	if c.Len() != 10 {
		t.Errorf("in-range lookup changed cache length to %d", c.Len())
	}
}

func TestSpendGrowsOnNearMiss(t *testing.T) {
	var grownFrom, grownTo int
	c, err := epscache.New(smallTable(10), epscache.WithGrowObserver(
		func(from, to int, _ time.Duration) { grownFrom, grownTo = from, to },
	))
	if err != nil {
		t.Fatal(err)
	}

	// ToIndex(0.0021) = 20: a miss 10 past the table end, well inside the
	// growth window.
	got, err := c.Spend([]float64{0.0021})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] <= 0 {
		t.Fatalf("Spend after growth = %v, want one positive value", got)
	}
	if c.Len() <= 20 {
		t.Errorf("cache length %d, want > 20 after growth", c.Len())
	}
	if grownFrom != 10 || grownTo != c.Len() {
		t.Errorf("grow observer saw (%d, %d), want (10, %d)", grownFrom, grownTo, c.Len())
	}
}

func TestSpendBypassesOnFarMiss(t *testing.T) {
	var bypassed float64
	c, err := epscache.New(smallTable(10), epscache.WithBypassObserver(
		func(maxConstant float64) { bypassed = maxConstant },
	))
	if err != nil {
		t.Fatal(err)
	}

	// A far miss computed directly; the in-range constant still reads from
	// the table and the table itself must stay untouched.
	got, err := c.Spend([]float64{700_049.0, 0.0005})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] <= 0 || math.IsInf(got[0], 0) || math.IsNaN(got[0]) {
		t.Errorf("bypass epsilon = %v, want finite positive", got[0])
	}
	if got[1] != 0.01*5 {
		t.Errorf("in-range value = %v, want %v", got[1], 0.01*5)
	}
	if c.Len() != 10 {
		t.Errorf("bypass mutated cache: length %d, want 10", c.Len())
	}
	if bypassed != 700_049.0 {
		t.Errorf("bypass observer saw %v, want 700049", bypassed)
	}
}

func TestGrowIdempotent(t *testing.T) {
	once, err := epscache.New(smallTable(10))
	if err != nil {
		t.Fatal(err)
	}
	if err := once.Grow(30); err != nil {
		t.Fatal(err)
	}

	twice, err := epscache.New(smallTable(10))
	if err != nil {
		t.Fatal(err)
	}
	if err := twice.Grow(30); err != nil {
		t.Fatal(err)
	}
	if err := twice.Grow(30); err != nil {
		t.Fatal(err)
	}

	if once.Len() != 30 || twice.Len() != 30 {
		t.Fatalf("lengths %d and %d, want 30", once.Len(), twice.Len())
	}
	for i := 0; i < 30; i++ {
		a, _ := once.At(i)
		b, _ := twice.At(i)
		if a != b {
			t.Errorf("index %d: grown-once %v != grown-twice %v", i, a, b)
		}
	}
}

func TestGrowConcurrent(t *testing.T) {
	c, err := epscache.New(smallTable(10))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Grow(40); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	want, err := epscache.New(smallTable(10))
	if err != nil {
		t.Fatal(err)
	}
	if err := want.Grow(40); err != nil {
		t.Fatal(err)
	}

	if c.Len() != want.Len() {
		t.Fatalf("length %d, want %d", c.Len(), want.Len())
	}
	for i := 0; i < c.Len(); i++ {
		a, _ := c.At(i)
		b, _ := want.At(i)
		if a != b {
			t.Errorf("index %d: concurrent %v != sequential %v", i, a, b)
		}
	}
}

func TestLookupMissFails(t *testing.T) {
	c, err := epscache.New(smallTable(10))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Lookup([]int{5, 10}); !errors.Is(err, epscache.ErrCacheMiss) {
		t.Fatalf("got %v, want ErrCacheMiss", err)
	}
}
