package budget

import (
	"context"
	"sync"

	"github.com/xraph/dpledger/subject"
)

// Memory is an in-process Store: a mutex-guarded allowance table with
// compare-and-swap deduction. Suitable for tests and single-process
// deployments; multi-process deployments back this interface with the
// shared user table instead.
type Memory struct {
	mu         sync.Mutex
	allowances map[subject.Key]float64
}

// NewMemory creates an empty in-memory budget store.
func NewMemory() *Memory {
	return &Memory{allowances: make(map[subject.Key]float64)}
}

// SetBudget seeds or resets the allowance for key.
func (m *Memory) SetBudget(key subject.Key, allowance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[key] = allowance
}

// Budget implements Store.
func (m *Memory) Budget(_ context.Context, key subject.Key) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowance, ok := m.allowances[key]
	if !ok {
		return 0, ErrUnknownKey
	}
	return allowance, nil
}

// Deduct implements Store. The deduction applies only when the caller's
// view of the allowance is still current.
func (m *Memory) Deduct(_ context.Context, key subject.Key, oldBudget, spend float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.allowances[key]
	if !ok {
		return 0, ErrUnknownKey
	}
	if current != oldBudget {
		return 0, ErrRefreshRequired
	}

	m.allowances[key] = current - spend
	return m.allowances[key], nil
}
