package dpledger

import (
	"errors"
	"fmt"

	"github.com/xraph/dpledger/budget"
	"github.com/xraph/dpledger/epscache"
	"github.com/xraph/dpledger/optimizer"
	"github.com/xraph/dpledger/rdp"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput = errors.New("dpledger: invalid input")

	// Ledger store errors
	ErrLedgerNotFound    = errors.New("dpledger: ledger not found")
	ErrLedgerExists      = errors.New("dpledger: ledger already exists")
	ErrLedgerWriteFailed = errors.New("dpledger: ledger write failed")

	// Spend protocol errors. A negative spend would permit unbounded
	// privacy loss and must never reach the budget store; an exhausted
	// retry budget surfaces loudly rather than spinning.
	ErrNegativeSpend = errors.New("dpledger: negative epsilon spend")
	ErrSpendFailed   = errors.New("dpledger: failed to spend epsilon")

	// Store lifecycle errors
	ErrStoreNotReady = errors.New("dpledger: store not ready")
	ErrStoreClosed   = errors.New("dpledger: store is closed")
)

// Re-exported sub-package sentinels, so callers can classify failures with
// a single import.
var (
	// ErrRefreshRequired is budget.ErrRefreshRequired.
	ErrRefreshRequired = budget.ErrRefreshRequired

	// ErrCacheMissing is epscache.ErrCacheMissing.
	ErrCacheMissing = epscache.ErrCacheMissing

	// ErrCacheCorrupt is epscache.ErrCacheCorrupt.
	ErrCacheCorrupt = epscache.ErrCacheCorrupt

	// ErrInvalidSigma is rdp.ErrInvalidSigma.
	ErrInvalidSigma = rdp.ErrInvalidSigma

	// ErrNonFiniteEpsilon is optimizer.ErrNonFiniteEpsilon.
	ErrNonFiniteEpsilon = optimizer.ErrNonFiniteEpsilon
)

// SpendError carries the audit context of a failed deduction: who was being
// charged, how much, and how many attempts were made. Budget failures are
// security-relevant events and must never be reported without context.
type SpendError struct {
	Key      string
	Spend    float64
	Attempts int
	Err      error
}

func (e *SpendError) Error() string {
	return fmt.Sprintf("dpledger: spend %v for key %s failed after %d attempts: %v",
		e.Spend, e.Key, e.Attempts, e.Err)
}

func (e *SpendError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error means a ledger does not exist yet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLedgerNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, budget.ErrRefreshRequired) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrLedgerWriteFailed)
}

// IsFatal returns true for conditions that must abort the release: wrong
// numbers are never something to continue with.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNegativeSpend) ||
		errors.Is(err, ErrSpendFailed) ||
		errors.Is(err, epscache.ErrCacheMissing) ||
		errors.Is(err, epscache.ErrCacheCorrupt) ||
		errors.Is(err, rdp.ErrInvalidSigma) ||
		errors.Is(err, optimizer.ErrNonFiniteEpsilon)
}
