package dpledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/xraph/dpledger/budget"
	"github.com/xraph/dpledger/id"
	"github.com/xraph/dpledger/plugin"
	"github.com/xraph/dpledger/store"
	"github.com/xraph/dpledger/subject"
)

// EpsilonSource maps composed RDP constants to their epsilon cost at the
// fixed delta. Satisfied by *epscache.Cache; tests substitute fakes.
type EpsilonSource interface {
	Spend(constants []float64) ([]float64, error)
}

// cacheObservable is implemented by epsilon sources whose growth and bypass
// events can be rerouted after construction.
type cacheObservable interface {
	Observe(onGrow func(from, to int, elapsed time.Duration), onBypass func(maxConstant float64))
}

// Accountant is the privacy-budget accounting engine. It owns ledger
// persistence and the budget check-and-spend protocol; the remaining
// allowance itself always lives in the external budget store.
type Accountant struct {
	store   store.Store
	budgets budget.Store
	eps     EpsilonSource
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	maxSpendAttempts int
	retryBackoff     time.Duration
	skipMigrate      bool
}

// New creates a new Accountant instance.
func New(s store.Store, b budget.Store, eps EpsilonSource, opts ...Option) *Accountant {
	a := &Accountant{
		store:            s,
		budgets:          b,
		eps:              eps,
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		maxSpendAttempts: 5,
		retryBackoff:     50 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(a)
	}

	if c, ok := eps.(cacheObservable); ok {
		c.Observe(a.emitCacheGrown, a.emitCacheBypassed)
	}

	return a
}

// Option configures an Accountant instance.
type Option func(*Accountant)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accountant) {
		a.logger = logger
		a.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(a *Accountant) {
		_ = a.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithMaxSpendAttempts bounds how many times a stale deduction is retried
// before the spend fails loudly.
func WithMaxSpendAttempts(n int) Option {
	return func(a *Accountant) {
		if n > 0 {
			a.maxSpendAttempts = n
		}
	}
}

// WithSpendRetryBackoff sets the pause between deduction retries.
func WithSpendRetryBackoff(d time.Duration) Option {
	return func(a *Accountant) {
		if d >= 0 {
			a.retryBackoff = d
		}
	}
}

// WithoutMigrate skips schema migration on Start. Use when migrations are
// managed out of band.
func WithoutMigrate() Option {
	return func(a *Accountant) {
		a.skipMigrate = true
	}
}

// Start migrates the ledger store and initializes plugins.
func (a *Accountant) Start(ctx context.Context) error {
	if !a.skipMigrate {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	a.plugins.EmitInit(ctx, a)

	a.logger.Info("accountant started",
		"max_spend_attempts", a.maxSpendAttempts,
		"retry_backoff", a.retryBackoff,
	)

	return nil
}

// Stop shuts down the Accountant.
func (a *Accountant) Stop() error {
	ctx := context.Background()
	a.plugins.EmitShutdown(ctx)

	return a.store.Close()
}

// Plugins returns the plugin registry.
func (a *Accountant) Plugins() *plugin.Registry { return a.plugins }

// ──────────────────────────────────────────────────
// Ledger Management
// ──────────────────────────────────────────────────

// GetOrCreateLedger returns the ledger for key, creating a fresh empty one
// when none exists yet. Any read failure other than not-found is logged and
// surfaced, never masked as not-found.
func (a *Accountant) GetOrCreateLedger(ctx context.Context, key subject.Key) (*subject.Ledger, error) {
	led, err := a.store.GetLedger(ctx, key)
	if err == nil {
		return led, nil
	}
	if !IsNotFound(err) {
		a.logger.Error("ledger read failed", "key", key.String(), "error", err)
		return nil, err
	}

	led = subject.NewLedger(key)
	a.plugins.EmitLedgerCreated(ctx, key.String())
	a.logger.Debug("created fresh ledger", "key", key.String())
	return led, nil
}

// GetLedger retrieves the ledger for key.
func (a *Accountant) GetLedger(ctx context.Context, key subject.Key) (*subject.Ledger, error) {
	return a.store.GetLedger(ctx, key)
}

// DeleteLedger removes the ledger for key.
func (a *Accountant) DeleteLedger(ctx context.Context, key subject.Key) error {
	return a.store.DeleteLedger(ctx, key)
}

// ListLedgers lists persisted ledgers.
func (a *Accountant) ListLedgers(ctx context.Context, opts subject.ListOpts) ([]*subject.Ledger, error) {
	return a.store.ListLedgers(ctx, opts)
}

// SaveLedger persists led, bumping its update counter first. A failed write
// leaves the pending-save flag set so the caller can retry.
func (a *Accountant) SaveLedger(ctx context.Context, led *subject.Ledger) error {
	led.MarkUpdated()
	if err := a.store.SetLedger(ctx, led); err != nil {
		led.PendingSave = true
		return fmt.Errorf("%w: %w", ErrLedgerWriteFailed, err)
	}
	led.PendingSave = false
	a.plugins.EmitLedgerPersisted(ctx, led.Key.String(), led.UpdateCount)
	return nil
}

// ──────────────────────────────────────────────────
// Budget check & spend
// ──────────────────────────────────────────────────

// OverBudgetMask accumulates the query's per-subject RDP constants into led,
// converts every subject's accumulated constant to an epsilon cost, charges
// the largest cost that still fits under key's remaining allowance, and
// persists the ledger. The returned mask marks the data subjects whose cost
// exceeds the allowance; the caller must exclude them from the release.
//
// Deduction is optimistic: a concurrent allowance change signals
// refresh-required, and the check is re-run from a fresh read, bounded by
// the configured attempt limit. Any failure means the release must not
// proceed.
func (a *Accountant) OverBudgetMask(ctx context.Context, led *subject.Ledger, queryConstants map[string]float64) (map[string]bool, error) {
	attemptID := id.NewSpendAttemptID()
	log := a.logger.With("key", led.Key.String(), "spend_attempt_id", attemptID.String())

	led.Accumulate(queryConstants)
	names, constants := led.Snapshot()

	spends, err := a.eps.Spend(constants)
	if err != nil {
		return nil, err
	}
	for i, spend := range spends {
		if spend < 0 || math.IsNaN(spend) || math.IsInf(spend, 0) {
			return nil, fmt.Errorf("%w: subject %s, spend %v", ErrNegativeSpend, names[i], spend)
		}
	}

	mask, err := a.spend(ctx, log, led.Key, names, spends)
	if err != nil {
		return nil, err
	}

	if err := a.SaveLedger(ctx, led); err != nil {
		log.Error("ledger write failed, state pending save", "error", err)
		return nil, err
	}

	if over := maskedSubjects(mask); len(over) > 0 {
		a.plugins.EmitOverBudget(ctx, led.Key.String(), over)
		log.Warn("data subjects over budget", "subjects", over)
	}

	return mask, nil
}

// spend runs the read-check-deduct loop: read the allowance, mask subjects
// whose cost no longer fits, deduct the highest cost that does. A stale
// allowance re-runs the whole check from a fresh read.
func (a *Accountant) spend(ctx context.Context, log *slog.Logger, key subject.Key, names []string, spends []float64) (map[string]bool, error) {
	var (
		mask    map[string]bool
		highest float64
	)

	for attempt := 1; attempt <= a.maxSpendAttempts; attempt++ {
		allowance, err := a.budgets.Budget(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("dpledger: read budget: %w", err)
		}

		mask = make(map[string]bool, len(names))
		highest = 0
		for i, name := range names {
			over := allowance < spends[i]
			mask[name] = over
			if !over && spends[i] > highest {
				highest = spends[i]
			}
		}

		if highest == 0 {
			return mask, nil
		}

		newBudget, err := a.budgets.Deduct(ctx, key, allowance, highest)
		if err == nil {
			a.plugins.EmitEpsilonSpent(ctx, key.String(), highest, newBudget, attempt)
			log.Debug("epsilon spent",
				"spend", highest,
				"new_budget", newBudget,
				"attempts", attempt,
			)
			return mask, nil
		}
		if !errors.Is(err, budget.ErrRefreshRequired) {
			a.plugins.EmitSpendFailed(ctx, key.String(), highest, attempt)
			return nil, &SpendError{Key: key.String(), Spend: highest, Attempts: attempt, Err: err}
		}

		log.Debug("allowance changed concurrently, refreshing", "attempt", attempt)
		if a.retryBackoff > 0 && attempt < a.maxSpendAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.retryBackoff):
			}
		}
	}

	a.plugins.EmitSpendFailed(ctx, key.String(), highest, a.maxSpendAttempts)
	return nil, &SpendError{
		Key:      key.String(),
		Spend:    highest,
		Attempts: a.maxSpendAttempts,
		Err:      ErrSpendFailed,
	}
}

// maskedSubjects returns the names marked over budget, in map order.
func maskedSubjects(mask map[string]bool) []string {
	var over []string
	for name, masked := range mask {
		if masked {
			over = append(over, name)
		}
	}
	return over
}

// ──────────────────────────────────────────────────
// Cache event routing
// ──────────────────────────────────────────────────

func (a *Accountant) emitCacheGrown(from, to int, elapsed time.Duration) {
	ctx := context.Background()
	a.plugins.EmitCacheGrown(ctx, from, to, elapsed)
	a.logger.Info("epsilon cache grown", "from", from, "to", to, "elapsed", elapsed)
}

func (a *Accountant) emitCacheBypassed(maxConstant float64) {
	ctx := context.Background()
	a.plugins.EmitCacheBypassed(ctx, maxConstant)
	a.logger.Info("epsilon cache bypassed", "max_constant", maxConstant)
}
