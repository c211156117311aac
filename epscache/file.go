package epscache

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// DefaultFilename is the shipped cache file: 1.2M entries, little-endian
// float64, covering constants up to MaxCacheableConstant at FixedDelta.
const DefaultFilename = "constant2epsilon_1200k.bin"

// Load reads a cache file: a flat array of little-endian float64 values.
// A missing file is fatal — the engine must not start without its table.
// The first entry must equal Sentinel and no entry may be zero or less;
// anything else means the file was baked with incompatible parameters.
func Load(path string, opts ...Option) (*Cache, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMissing, path)
		}
		return nil, fmt.Errorf("epscache: load %s: %w", path, err)
	}

	if len(raw) == 0 || len(raw)%8 != 0 {
		return nil, fmt.Errorf("%w: %s: %d bytes is not a float64 array", ErrCacheCorrupt, path, len(raw))
	}

	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}

	if values[0] != Sentinel {
		return nil, fmt.Errorf("%w: %s: first entry %v, want sentinel %v",
			ErrCacheCorrupt, path, values[0], Sentinel)
	}

	return New(values, opts...)
}

// Write persists a table in the flat little-endian float64 format Load
// reads. Used by cache baking tools and tests.
func Write(path string, values []float64) error {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("epscache: write %s: %w", path, err)
	}
	return nil
}
