package extension

import (
	"time"

	"github.com/xraph/dpledger/epscache"
)

// Config holds the dpledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.dpledger" or "dpledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// CachePath is the location of the pre-baked constant-to-epsilon cache
	// file (default: epscache.DefaultFilename). A missing file fails
	// Register: the engine must not fall back to full optimization for
	// ordinary traffic.
	CachePath string `json:"cache_path" mapstructure:"cache_path" yaml:"cache_path"`

	// MaxSpendAttempts bounds the deduction retry loop (default: 5).
	MaxSpendAttempts int `json:"max_spend_attempts" mapstructure:"max_spend_attempts" yaml:"max_spend_attempts"`

	// SpendRetryBackoff is the pause between deduction retries when the
	// allowance changed concurrently (default: 50ms).
	SpendRetryBackoff time.Duration `json:"spend_retry_backoff" mapstructure:"spend_retry_backoff" yaml:"spend_retry_backoff"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CachePath:         epscache.DefaultFilename,
		MaxSpendAttempts:  5,
		SpendRetryBackoff: 50 * time.Millisecond,
	}
}
