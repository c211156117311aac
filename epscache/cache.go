// Package epscache maps composed RDP constants to precomputed epsilon
// values through a large, append-only, file-backed lookup table.
//
// The table is process-wide shared state: read-mostly, grown rarely. Growth
// is a single-writer operation serialized behind the write lock, so
// concurrent growers never append overlapping ranges and readers never see
// a half-appended slice. Requests far beyond the cached range bypass the
// table entirely and are computed directly, leaving the cache unmodified.
package epscache

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xraph/dpledger/optimizer"
)

const (
	// InitialSize is the entry count of the shipped cache file.
	InitialSize = 1_200_000

	// Sentinel is the required first entry of every compatible cache:
	// the epsilon of the smallest fine-region constant. A file that opens
	// with anything else was baked with different parameters.
	Sentinel = 0.05372712063485988

	// FixedDelta is the delta every cached epsilon was computed at.
	// It must never change without regenerating the entire cache.
	FixedDelta = 1e-6

	// bypassGap is the miss distance, in indices, beyond which growing the
	// cache would dominate the request and lookups are computed directly.
	bypassGap = 150_000

	// growthHeadroom oversizes a growth target so the very next slightly
	// larger constant does not immediately force another growth.
	growthHeadroom = 1.1
)

// Sentinel errors for cache failures.
var (
	// ErrCacheMissing means the cache file could not be found at startup.
	// The engine cannot operate without its pre-baked table: falling back
	// to full optimization for ordinary traffic is never acceptable.
	ErrCacheMissing = errors.New("epscache: cache file missing")

	// ErrCacheCorrupt means the cache failed a consistency check: wrong
	// sentinel, zero entry, or truncated file.
	ErrCacheCorrupt = errors.New("epscache: cache corrupt")

	// ErrCacheMiss means a lookup index is beyond the current cache length.
	ErrCacheMiss = errors.New("epscache: cache miss")
)

// Option configures a Cache.
type Option func(*Cache)

// WithGrowObserver registers a callback invoked after every successful
// growth with the old length, new length and time spent computing.
func WithGrowObserver(fn func(from, to int, elapsed time.Duration)) Option {
	return func(c *Cache) {
		c.onGrow = fn
	}
}

// WithBypassObserver registers a callback invoked whenever a request is
// computed directly instead of growing the cache.
func WithBypassObserver(fn func(maxConstant float64)) Option {
	return func(c *Cache) {
		c.onBypass = fn
	}
}

// Cache is the constant-to-epsilon table. Safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	values []float64

	onGrow   func(from, to int, elapsed time.Duration)
	onBypass func(maxConstant float64)
}

// New builds a cache from an in-memory table, validating the no-zero
// invariant. Intended for tests and for callers that manage the file
// themselves; production code loads the shipped file via Load.
func New(values []float64, opts ...Option) (*Cache, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrCacheCorrupt)
	}
	for i, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: entry %d = %v", ErrCacheCorrupt, i, v)
		}
	}
	c := &Cache{values: values}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Observe replaces both observers. The accounting engine uses this to route
// growth and bypass events into its plugin registry after the cache has
// already been loaded.
func (c *Cache) Observe(onGrow func(from, to int, elapsed time.Duration), onBypass func(maxConstant float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onGrow = onGrow
	c.onBypass = onBypass
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// At returns the cached epsilon at index i.
func (c *Cache) At(i int) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.values) {
		return 0, fmt.Errorf("%w: index %d, length %d", ErrCacheMiss, i, len(c.values))
	}
	return c.values[i], nil
}

// Lookup returns the cached epsilon for every index. Any index at or beyond
// the current length is a miss and fails the whole lookup; miss handling
// (growth or bypass) is Spend's job.
func (c *Cache) Lookup(indices []int) ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.takeLocked(indices)
}

// takeLocked reads values for indices. Callers must hold at least mu.RLock.
func (c *Cache) takeLocked(indices []int) ([]float64, error) {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(c.values) {
			return nil, fmt.Errorf("%w: index %d, length %d", ErrCacheMiss, idx, len(c.values))
		}
		v := c.values[idx]
		if v <= 0 {
			return nil, fmt.Errorf("%w: zero entry at index %d", ErrCacheCorrupt, idx)
		}
		out[i] = v
	}
	return out, nil
}

// Spend maps each composed RDP constant to its epsilon cost.
//
// In-range constants are served straight from the table. A miss within
// bypassGap indices of the current end grows the table and retries. A miss
// beyond that computes every requested value directly via the optimizer,
// leaving the table untouched.
func (c *Cache) Spend(constants []float64) ([]float64, error) {
	indices := Indices(constants)

	maxIdx := 0
	for _, idx := range indices {
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	c.mu.RLock()
	n := len(c.values)
	onBypass := c.onBypass
	if maxIdx < n {
		defer c.mu.RUnlock()
		return c.takeLocked(indices)
	}
	c.mu.RUnlock()

	if maxIdx-n >= bypassGap {
		if onBypass != nil {
			maxConstant := 0.0
			for _, v := range constants {
				if v > maxConstant {
					maxConstant = v
				}
			}
			onBypass(maxConstant)
		}
		return c.spendDirect(constants, indices)
	}

	target := int(float64(maxIdx) * growthHeadroom)
	if target <= maxIdx {
		target = maxIdx + 1
	}
	if err := c.Grow(target); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.takeLocked(indices)
}

// spendDirect computes epsilon values without mutating the cache. Entries
// still within the table are read from it; the rest go to the optimizer.
func (c *Cache) spendDirect(constants []float64, indices []int) ([]float64, error) {
	c.mu.RLock()
	n := len(c.values)
	out := make([]float64, len(constants))
	for i, constant := range constants {
		if constant <= MaxCacheableConstant && indices[i] < n {
			out[i] = c.values[indices[i]]
			if out[i] <= 0 {
				c.mu.RUnlock()
				return nil, fmt.Errorf("%w: zero entry at index %d", ErrCacheCorrupt, indices[i])
			}
			continue
		}
		out[i] = math.NaN() // filled below, outside the lock
	}
	c.mu.RUnlock()

	for i, constant := range constants {
		if !math.IsNaN(out[i]) {
			continue
		}
		_, eps, err := optimizer.OptimalEpsilon(constant, FixedDelta)
		if err != nil {
			return nil, err
		}
		out[i] = eps
	}
	return out, nil
}

// Grow extends the table to at least target entries, computing each new
// entry from the optimizer for the integer constants len+1..target. Growth
// is idempotent: if a concurrent grower already reached target, Grow
// returns immediately, so racing growers produce identical tables.
func (c *Cache) Grow(target int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.values) >= target {
		return nil
	}

	start := time.Now()
	from := len(c.values)
	for i := from + 1; i <= target; i++ {
		_, eps, err := optimizer.OptimalEpsilon(float64(i), FixedDelta)
		if err != nil {
			return err
		}
		c.values = append(c.values, eps)
	}

	if c.onGrow != nil {
		c.onGrow(from, len(c.values), time.Since(start))
	}
	return nil
}
