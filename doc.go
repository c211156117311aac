// Package dpledger provides a differential-privacy budget accounting engine
// for Go applications.
//
// Dpledger is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Per-data-subject privacy-loss ledgers keyed by verify key
//   - Rényi-DP constant composition across mechanism invocations
//   - A 1.2M-entry precomputed constant-to-epsilon cache with transparent
//     growth and big-constant bypass
//   - RDP-to-(ε, δ) conversion via derivative-free minimization
//   - An optimistic, bounded-retry budget check-and-spend protocol against
//     an external allowance store
//
// # Quick Start
//
// Create an accountant with your preferred store and the shipped epsilon
// cache:
//
//	import (
//	    "github.com/xraph/dpledger"
//	    "github.com/xraph/dpledger/budget"
//	    "github.com/xraph/dpledger/epscache"
//	    "github.com/xraph/dpledger/store/postgres"
//	)
//
//	store := postgres.New(db)
//
//	cache, err := epscache.Load(epscache.DefaultFilename)
//	if err != nil {
//	    log.Fatal(err) // a missing cache is fatal, never fall back
//	}
//
//	acct := dpledger.New(store, budgetStore, cache)
//	if err := acct.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer acct.Stop()
//
// # Core Concepts
//
// Each Gaussian mechanism invocation costs an RDP constant, computed from
// its noise scale and sensitivity:
//
//	c, err := rdp.Constant(sigma, l2Norm, lipschitz)
//
// Constants compose additively per data subject inside that subject's
// ledger. Checking and charging a query is one call:
//
//	led, err := acct.GetOrCreateLedger(ctx, key)
//	mask, err := acct.OverBudgetMask(ctx, led, queryConstants)
//
// Subjects marked true in the mask exceed their remaining allowance and
// must be excluded from the release. Any error means the release must not
// proceed: the engine fails closed.
//
// # Concurrency
//
// The epsilon cache is process-wide shared state, read-mostly and grown
// rarely behind a single writer lock. Budget deduction is optimistic:
// the allowance is read, the mask computed, and the deduction applied only
// if the allowance is unchanged, retrying from a fresh read otherwise.
// No lock is held across the (potentially slow) epsilon computation.
package dpledger
