package extension

import (
	"time"

	"github.com/xraph/dpledger"
	"github.com/xraph/dpledger/budget"
	"github.com/xraph/dpledger/plugin"
	"github.com/xraph/dpledger/store"
)

// Option configures the dpledger Forge extension.
type Option func(*Extension)

// WithStore sets the ledger store for the accounting engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithBudgetStore sets the external allowance store. Required: the engine
// never owns the remaining budget itself.
func WithBudgetStore(b budget.Store) Option {
	return func(e *Extension) {
		e.budgets = b
	}
}

// WithEpsilonSource injects a pre-built epsilon source, bypassing the cache
// file load in Register. Mainly for tests.
func WithEpsilonSource(eps dpledger.EpsilonSource) Option {
	return func(e *Extension) {
		e.eps = eps
	}
}

// WithAccountantOption passes a dpledger.Option through to the underlying engine.
func WithAccountantOption(opt dpledger.Option) Option {
	return func(e *Extension) {
		e.acctOpts = append(e.acctOpts, opt)
	}
}

// WithPlugin registers an accountant plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.acctOpts = append(e.acctOpts, dpledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithCachePath sets the location of the constant-to-epsilon cache file.
func WithCachePath(path string) Option {
	return func(e *Extension) { e.config.CachePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMaxSpendAttempts bounds the deduction retry loop.
func WithMaxSpendAttempts(n int) Option {
	return func(e *Extension) { e.config.MaxSpendAttempts = n }
}

// WithSpendRetryBackoff sets the pause between deduction retries.
func WithSpendRetryBackoff(d time.Duration) Option {
	return func(e *Extension) { e.config.SpendRetryBackoff = d }
}
