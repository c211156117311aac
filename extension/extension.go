// Package extension provides the Forge extension adapter for dpledger.
//
// It implements the forge.Extension interface to integrate the privacy
// accounting engine into a Forge application with automatic dependency
// discovery, DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.dpledger" or
// "dpledger" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/dpledger"
	"github.com/xraph/dpledger/budget"
	"github.com/xraph/dpledger/epscache"
	"github.com/xraph/dpledger/store"
	"github.com/xraph/dpledger/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "dpledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Differential-privacy budget accounting engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts dpledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *dpledger.Accountant
	store    store.Store
	budgets  budget.Store
	eps      dpledger.EpsilonSource
	acctOpts []dpledger.Option
}

// New creates a new dpledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Accountant instance.
// This is nil until Register is called.
func (e *Extension) Engine() *dpledger.Accountant { return e.engine }

// Register implements [forge.Extension]. It loads configuration, loads the
// epsilon cache, initializes the accounting engine, and registers it in the
// DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// The allowance table lives outside this module; it must be injected.
	if e.budgets == nil {
		return errors.New("dpledger: no budget store provided; use WithBudgetStore")
	}

	// Load the pre-baked cache unless one was injected. A missing or
	// corrupt cache file is fatal.
	if e.eps == nil {
		cache, err := epscache.Load(e.config.CachePath)
		if err != nil {
			return err
		}
		e.eps = cache
	}

	opts := e.buildAccountantOpts()

	eng := dpledger.New(e.store, e.budgets, e.eps, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*dpledger.Accountant, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("dpledger: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("dpledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildAccountantOpts constructs dpledger.Option values from the resolved config.
func (e *Extension) buildAccountantOpts() []dpledger.Option {
	opts := make([]dpledger.Option, 0, len(e.acctOpts)+3)

	if e.config.MaxSpendAttempts > 0 {
		opts = append(opts, dpledger.WithMaxSpendAttempts(e.config.MaxSpendAttempts))
	}
	if e.config.SpendRetryBackoff > 0 {
		opts = append(opts, dpledger.WithSpendRetryBackoff(e.config.SpendRetryBackoff))
	}
	if e.config.DisableMigrate {
		opts = append(opts, dpledger.WithoutMigrate())
	}

	// Append any pass-through accountant options.
	opts = append(opts, e.acctOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("dpledger: configuration is required but not found in config files; " +
				"ensure 'extensions.dpledger' or 'dpledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("dpledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("cache_path", e.config.CachePath),
		forge.F("max_spend_attempts", e.config.MaxSpendAttempts),
		forge.F("spend_retry_backoff", e.config.SpendRetryBackoff),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.dpledger" first (namespaced pattern).
	if cm.IsSet("extensions.dpledger") {
		if err := cm.Bind("extensions.dpledger", &cfg); err == nil {
			e.Logger().Debug("dpledger: loaded config from file",
				forge.F("key", "extensions.dpledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("dpledger: failed to bind extensions.dpledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "dpledger" key.
	if cm.IsSet("dpledger") {
		if err := cm.Bind("dpledger", &cfg); err == nil {
			e.Logger().Debug("dpledger: loaded config from file",
				forge.F("key", "dpledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("dpledger: failed to bind dpledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.CachePath == "" {
		cfg.CachePath = defaults.CachePath
	}
	if cfg.MaxSpendAttempts == 0 {
		cfg.MaxSpendAttempts = defaults.MaxSpendAttempts
	}
	if cfg.SpendRetryBackoff == 0 {
		cfg.SpendRetryBackoff = defaults.SpendRetryBackoff
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.CachePath == "" && programmaticConfig.CachePath != "" {
		yamlConfig.CachePath = programmaticConfig.CachePath
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxSpendAttempts == 0 && programmaticConfig.MaxSpendAttempts != 0 {
		yamlConfig.MaxSpendAttempts = programmaticConfig.MaxSpendAttempts
	}
	if yamlConfig.SpendRetryBackoff == 0 && programmaticConfig.SpendRetryBackoff != 0 {
		yamlConfig.SpendRetryBackoff = programmaticConfig.SpendRetryBackoff
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
