// Package plugin provides an extensible plugin system for dpledger.
// Plugins can hook into lifecycle events of the accounting engine to
// extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerCreated is called when a fresh ledger is created for a verify key
// that had none.
type OnLedgerCreated interface {
	Plugin
	OnLedgerCreated(ctx context.Context, key string) error
}

// OnLedgerPersisted is called after ledger state is successfully written
// back to its store.
type OnLedgerPersisted interface {
	Plugin
	OnLedgerPersisted(ctx context.Context, key string, updateCount uint64) error
}

// ──────────────────────────────────────────────────
// Budget protocol hooks
// ──────────────────────────────────────────────────

// OnEpsilonSpent is called after a successful budget deduction.
type OnEpsilonSpent interface {
	Plugin
	OnEpsilonSpent(ctx context.Context, key string, spend, newBudget float64, attempts int) error
}

// OnOverBudget is called when one or more data subjects exceed the
// remaining allowance and are masked out of a release.
type OnOverBudget interface {
	Plugin
	OnOverBudget(ctx context.Context, key string, subjects []string) error
}

// OnSpendFailed is called when the deduction retry budget is exhausted or
// the deduction fails fatally. Budget failures are security-relevant.
type OnSpendFailed interface {
	Plugin
	OnSpendFailed(ctx context.Context, key string, spend float64, attempts int) error
}

// ──────────────────────────────────────────────────
// Epsilon cache hooks
// ──────────────────────────────────────────────────

// OnCacheGrown is called after the epsilon cache is extended.
type OnCacheGrown interface {
	Plugin
	OnCacheGrown(ctx context.Context, from, to int, elapsed time.Duration) error
}

// OnCacheBypassed is called when a request is computed directly because
// growing the cache would dominate the request.
type OnCacheBypassed interface {
	Plugin
	OnCacheBypassed(ctx context.Context, maxConstant float64) error
}
