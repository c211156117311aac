// Package memory provides an in-process store.Store for tests and demos.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/xraph/dpledger"
	ledgerstore "github.com/xraph/dpledger/store"
	"github.com/xraph/dpledger/subject"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store keeps ledgers in a mutex-guarded map. Ledgers are copied on the way
// in and out so callers never share mutable state with the store.
type Store struct {
	mu      sync.RWMutex
	ledgers map[subject.Key]*subject.Ledger
	closed  bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		ledgers: make(map[subject.Key]*subject.Ledger),
	}
}

func (s *Store) GetLedger(_ context.Context, key subject.Key) (*subject.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, dpledger.ErrStoreClosed
	}
	l, ok := s.ledgers[key]
	if !ok {
		return nil, dpledger.ErrLedgerNotFound
	}
	return cloneLedger(l), nil
}

func (s *Store) SetLedger(_ context.Context, l *subject.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dpledger.ErrStoreClosed
	}
	s.ledgers[l.Key] = cloneLedger(l)
	return nil
}

func (s *Store) DeleteLedger(_ context.Context, key subject.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dpledger.ErrStoreClosed
	}
	if _, ok := s.ledgers[key]; !ok {
		return dpledger.ErrLedgerNotFound
	}
	delete(s.ledgers, key)
	return nil
}

func (s *Store) ListLedgers(_ context.Context, opts subject.ListOpts) ([]*subject.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, dpledger.ErrStoreClosed
	}

	result := make([]*subject.Ledger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		result = append(result, cloneLedger(l))
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dpledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneLedger(l *subject.Ledger) *subject.Ledger {
	c := *l
	c.Constants = maps.Clone(l.Constants)
	return &c
}
