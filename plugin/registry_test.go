package plugin_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xraph/dpledger/plugin"
)

// recorder implements every hook and records what it saw.
type recorder struct {
	name string

	mu        sync.Mutex
	created   []string
	persisted []uint64
	spends    []float64
	over      [][]string
	failed    int
	grownTo   int
	bypassed  float64
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnInit(context.Context, interface{}) error { return nil }
func (r *recorder) OnShutdown(context.Context) error          { return nil }

func (r *recorder) OnLedgerCreated(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, key)
	return nil
}

func (r *recorder) OnLedgerPersisted(_ context.Context, _ string, updateCount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persisted = append(r.persisted, updateCount)
	return nil
}

func (r *recorder) OnEpsilonSpent(_ context.Context, _ string, spend, _ float64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spends = append(r.spends, spend)
	return nil
}

func (r *recorder) OnOverBudget(_ context.Context, _ string, subjects []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.over = append(r.over, subjects)
	return nil
}

func (r *recorder) OnSpendFailed(_ context.Context, _ string, _ float64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
	return nil
}

func (r *recorder) OnCacheGrown(_ context.Context, _, to int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grownTo = to
	return nil
}

func (r *recorder) OnCacheBypassed(_ context.Context, maxConstant float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bypassed = maxConstant
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	ctx := context.Background()
	reg := plugin.NewRegistry()
	rec := &recorder{name: "recorder"}

	if err := reg.Register(rec); err != nil {
		t.Fatal(err)
	}
	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}
	if reg.Get("recorder") != plugin.Plugin(rec) {
		t.Error("Get did not return the registered plugin")
	}

	reg.EmitLedgerCreated(ctx, "key-1")
	reg.EmitLedgerPersisted(ctx, "key-1", 7)
	reg.EmitEpsilonSpent(ctx, "key-1", 0.5, 4.5, 1)
	reg.EmitOverBudget(ctx, "key-1", []string{"alice"})
	reg.EmitSpendFailed(ctx, "key-1", 0.5, 5)
	reg.EmitCacheGrown(ctx, 10, 22, time.Millisecond)
	reg.EmitCacheBypassed(ctx, 900_000)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.created) != 1 || rec.created[0] != "key-1" {
		t.Errorf("created = %v", rec.created)
	}
	if len(rec.persisted) != 1 || rec.persisted[0] != 7 {
		t.Errorf("persisted = %v", rec.persisted)
	}
	if len(rec.spends) != 1 || rec.spends[0] != 0.5 {
		t.Errorf("spends = %v", rec.spends)
	}
	if len(rec.over) != 1 || len(rec.over[0]) != 1 || rec.over[0][0] != "alice" {
		t.Errorf("over = %v", rec.over)
	}
	if rec.failed != 1 {
		t.Errorf("failed = %d, want 1", rec.failed)
	}
	if rec.grownTo != 22 {
		t.Errorf("grownTo = %d, want 22", rec.grownTo)
	}
	if rec.bypassed != 900_000 {
		t.Errorf("bypassed = %v, want 900000", rec.bypassed)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := plugin.NewRegistry()

	if err := reg.Register(&recorder{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&recorder{name: "dup"}); err == nil {
		t.Fatal("duplicate registration accepted")
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}

func TestEmitOnEmptyRegistry(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.EmitLedgerCreated(context.Background(), "key-1")
	reg.EmitShutdown(context.Background())
}
