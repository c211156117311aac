package budget_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/xraph/dpledger/budget"
	"github.com/xraph/dpledger/subject"
)

func testKey(t *testing.T) subject.Key {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := subject.KeyFromVerifyKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestDeductWithCurrentView(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)

	m := budget.NewMemory()
	m.SetBudget(key, 5.0)

	allowance, err := m.Budget(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if allowance != 5.0 {
		t.Fatalf("Budget = %v, want 5.0", allowance)
	}

	newBudget, err := m.Deduct(ctx, key, allowance, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if newBudget != 3.5 {
		t.Errorf("Deduct = %v, want 3.5", newBudget)
	}
}

func TestDeductWithStaleViewRequiresRefresh(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)

	m := budget.NewMemory()
	m.SetBudget(key, 5.0)

	// Another session moves the allowance between our read and deduct.
	if _, err := m.Deduct(ctx, key, 5.0, 1.0); err != nil {
		t.Fatal(err)
	}

	_, err := m.Deduct(ctx, key, 5.0, 1.0)
	if !errors.Is(err, budget.ErrRefreshRequired) {
		t.Fatalf("got %v, want ErrRefreshRequired", err)
	}

	// A fresh read makes the deduction valid again.
	allowance, err := m.Budget(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Deduct(ctx, key, allowance, 1.0); err != nil {
		t.Fatal(err)
	}
}

func TestUnknownKey(t *testing.T) {
	ctx := context.Background()
	m := budget.NewMemory()

	if _, err := m.Budget(ctx, testKey(t)); !errors.Is(err, budget.ErrUnknownKey) {
		t.Fatalf("Budget: got %v, want ErrUnknownKey", err)
	}
	if _, err := m.Deduct(ctx, testKey(t), 5.0, 1.0); !errors.Is(err, budget.ErrUnknownKey) {
		t.Fatalf("Deduct: got %v, want ErrUnknownKey", err)
	}
}
