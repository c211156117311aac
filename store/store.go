// Package store defines the unified persistence interface for dpledger.
package store

import (
	"context"

	"github.com/xraph/dpledger/subject"
)

// Store is the storage interface behind the accounting engine: a keyed
// table of per-verify-key ledgers plus lifecycle methods.
type Store interface {
	// Ledger methods
	GetLedger(ctx context.Context, key subject.Key) (*subject.Ledger, error)
	SetLedger(ctx context.Context, l *subject.Ledger) error
	DeleteLedger(ctx context.Context, key subject.Key) error
	ListLedgers(ctx context.Context, opts subject.ListOpts) ([]*subject.Ledger, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
