package subject

import "context"

// Store is the narrow persistence interface for ledgers.
type Store interface {
	GetLedger(ctx context.Context, key Key) (*Ledger, error)
	SetLedger(ctx context.Context, l *Ledger) error
	DeleteLedger(ctx context.Context, key Key) error
	ListLedgers(ctx context.Context, opts ListOpts) ([]*Ledger, error)
}

// ListOpts controls ListLedgers pagination.
type ListOpts struct {
	Limit  int
	Offset int
}
