// Package budget defines the capability interface to the external store
// holding each verify key's remaining epsilon allowance.
//
// The ledger never owns the allowance; it only reads and deducts through
// this interface, so the budget table's consistency model stays with its
// owner. Deduction is optimistic: the caller passes the allowance it based
// its math on, and the store signals ErrRefreshRequired when that value is
// stale because another session already changed it.
package budget

import (
	"context"
	"errors"

	"github.com/xraph/dpledger/subject"
)

// ErrRefreshRequired signals that the allowance changed between read and
// deduct. It is the one recoverable condition in the spend protocol: the
// caller re-reads the allowance, recomputes, and retries (bounded).
var ErrRefreshRequired = errors.New("budget: allowance changed, refresh required")

// ErrUnknownKey is returned when no budget row exists for the key.
var ErrUnknownKey = errors.New("budget: unknown verify key")

// Store is the capability interface to the external budget table.
type Store interface {
	// Budget returns the current remaining epsilon allowance for key.
	Budget(ctx context.Context, key subject.Key) (float64, error)

	// Deduct atomically subtracts spend from key's allowance, provided the
	// allowance still equals oldBudget. It returns the new allowance, or
	// ErrRefreshRequired when oldBudget is stale.
	Deduct(ctx context.Context, key subject.Key, oldBudget, spend float64) (float64, error)
}
