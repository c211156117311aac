package types_test

import (
	"testing"
	"time"

	"github.com/xraph/dpledger/types"
)

func TestNewEntity(t *testing.T) {
	e := types.NewEntity()
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Fatal("NewEntity left timestamps zero")
	}
	if !e.CreatedAt.Equal(e.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", e.CreatedAt, e.UpdatedAt)
	}
}

func TestTouch(t *testing.T) {
	e := types.NewEntity()
	before := e.UpdatedAt

	time.Sleep(time.Millisecond)
	e.Touch()

	if !e.UpdatedAt.After(before) {
		t.Errorf("Touch did not advance UpdatedAt: %v -> %v", before, e.UpdatedAt)
	}
	if e.CreatedAt.After(e.UpdatedAt) {
		t.Error("CreatedAt is after UpdatedAt")
	}
}

func TestIsStale(t *testing.T) {
	e := types.NewEntity()
	if e.IsStale(time.Hour) {
		t.Error("fresh entity reported stale")
	}

	e.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	if !e.IsStale(time.Hour) {
		t.Error("two-hour-old entity not reported stale")
	}
}
