package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onLedgerCreated   []OnLedgerCreated
	onLedgerPersisted []OnLedgerPersisted
	onEpsilonSpent    []OnEpsilonSpent
	onOverBudget      []OnOverBudget
	onSpendFailed     []OnSpendFailed
	onCacheGrown      []OnCacheGrown
	onCacheBypassed   []OnCacheBypassed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnLedgerCreated); ok {
		r.onLedgerCreated = append(r.onLedgerCreated, v)
	}
	if v, ok := p.(OnLedgerPersisted); ok {
		r.onLedgerPersisted = append(r.onLedgerPersisted, v)
	}
	if v, ok := p.(OnEpsilonSpent); ok {
		r.onEpsilonSpent = append(r.onEpsilonSpent, v)
	}
	if v, ok := p.(OnOverBudget); ok {
		r.onOverBudget = append(r.onOverBudget, v)
	}
	if v, ok := p.(OnSpendFailed); ok {
		r.onSpendFailed = append(r.onSpendFailed, v)
	}
	if v, ok := p.(OnCacheGrown); ok {
		r.onCacheGrown = append(r.onCacheGrown, v)
	}
	if v, ok := p.(OnCacheBypassed); ok {
		r.onCacheBypassed = append(r.onCacheBypassed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnLedgerCreated)(nil)).Elem(), "OnLedgerCreated")
	checkInterface(reflect.TypeOf((*OnLedgerPersisted)(nil)).Elem(), "OnLedgerPersisted")
	checkInterface(reflect.TypeOf((*OnEpsilonSpent)(nil)).Elem(), "OnEpsilonSpent")
	checkInterface(reflect.TypeOf((*OnOverBudget)(nil)).Elem(), "OnOverBudget")
	checkInterface(reflect.TypeOf((*OnSpendFailed)(nil)).Elem(), "OnSpendFailed")
	checkInterface(reflect.TypeOf((*OnCacheGrown)(nil)).Elem(), "OnCacheGrown")
	checkInterface(reflect.TypeOf((*OnCacheBypassed)(nil)).Elem(), "OnCacheBypassed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLedgerCreated emits a ledger created event.
func (r *Registry) EmitLedgerCreated(ctx context.Context, key string) {
	r.mu.RLock()
	plugins := r.onLedgerCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerCreated(ctx, key)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLedgerPersisted emits a ledger persisted event.
func (r *Registry) EmitLedgerPersisted(ctx context.Context, key string, updateCount uint64) {
	r.mu.RLock()
	plugins := r.onLedgerPersisted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerPersisted(ctx, key, updateCount)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerPersisted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEpsilonSpent emits a successful deduction event.
func (r *Registry) EmitEpsilonSpent(ctx context.Context, key string, spend, newBudget float64, attempts int) {
	r.mu.RLock()
	plugins := r.onEpsilonSpent
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEpsilonSpent(ctx, key, spend, newBudget, attempts)
		}); err != nil {
			r.logger.Warn("plugin OnEpsilonSpent failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOverBudget emits an over-budget event.
func (r *Registry) EmitOverBudget(ctx context.Context, key string, subjects []string) {
	r.mu.RLock()
	plugins := r.onOverBudget
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOverBudget(ctx, key, subjects)
		}); err != nil {
			r.logger.Warn("plugin OnOverBudget failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSpendFailed emits a spend failure event.
func (r *Registry) EmitSpendFailed(ctx context.Context, key string, spend float64, attempts int) {
	r.mu.RLock()
	plugins := r.onSpendFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSpendFailed(ctx, key, spend, attempts)
		}); err != nil {
			r.logger.Warn("plugin OnSpendFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCacheGrown emits a cache growth event.
func (r *Registry) EmitCacheGrown(ctx context.Context, from, to int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onCacheGrown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCacheGrown(ctx, from, to, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnCacheGrown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCacheBypassed emits a cache bypass event.
func (r *Registry) EmitCacheBypassed(ctx context.Context, maxConstant float64) {
	r.mu.RLock()
	plugins := r.onCacheBypassed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCacheBypassed(ctx, maxConstant)
		}); err != nil {
			r.logger.Warn("plugin OnCacheBypassed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the accounting pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
