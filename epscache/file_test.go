package epscache_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xraph/dpledger/epscache"
)

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")

	values := smallTable(100)
	if err := epscache.Write(path, values); err != nil {
		t.Fatal(err)
	}

	c, err := epscache.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != len(values) {
		t.Fatalf("loaded %d entries, want %d", c.Len(), len(values))
	}
	for i, want := range values {
		got, err := c.At(i)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("entry %d = %v, want %v", i, got, want)
		}
	}

	first, _ := c.At(0)
	if first != epscache.Sentinel {
		t.Errorf("first entry %v, want sentinel %v", first, epscache.Sentinel)
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, err := epscache.Load(filepath.Join(t.TempDir(), "no-such-cache.bin"))
	if !errors.Is(err, epscache.ErrCacheMissing) {
		t.Fatalf("got %v, want ErrCacheMissing", err)
	}
}

func TestLoadRejectsBadSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")

	values := smallTable(10)
	values[0] = 0.25
	if err := epscache.Write(path, values); err != nil {
		t.Fatal(err)
	}

	if _, err := epscache.Load(path); !errors.Is(err, epscache.ErrCacheCorrupt) {
		t.Fatalf("got %v, want ErrCacheCorrupt", err)
	}
}

func TestLoadRejectsZeroEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")

	values := smallTable(10)
	values[7] = 0
	if err := epscache.Write(path, values); err != nil {
		t.Fatal(err)
	}

	if _, err := epscache.Load(path); !errors.Is(err, epscache.ErrCacheCorrupt) {
		t.Fatalf("got %v, want ErrCacheCorrupt", err)
	}
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")

	if err := epscache.Write(path, smallTable(10)); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw[:len(raw)-3], 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := epscache.Load(path); !errors.Is(err, epscache.ErrCacheCorrupt) {
		t.Fatalf("got %v, want ErrCacheCorrupt", err)
	}
}
