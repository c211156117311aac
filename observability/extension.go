// Package observability provides a metrics extension for dpledger that
// records accounting event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/dpledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnLedgerCreated   = (*MetricsExtension)(nil)
	_ plugin.OnLedgerPersisted = (*MetricsExtension)(nil)
	_ plugin.OnEpsilonSpent    = (*MetricsExtension)(nil)
	_ plugin.OnOverBudget      = (*MetricsExtension)(nil)
	_ plugin.OnSpendFailed     = (*MetricsExtension)(nil)
	_ plugin.OnCacheGrown      = (*MetricsExtension)(nil)
	_ plugin.OnCacheBypassed   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide accounting metrics.
// Register it as an Accountant plugin to automatically track privacy-budget
// activity.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	LedgerCreated   Counter
	LedgerPersisted Counter

	// Spend metrics
	EpsilonSpent      Counter
	SpendAmount       Histogram
	SpendAttempts     Histogram
	SpendFailures     Counter
	OverBudgetEvents  Counter
	SubjectsOverLimit Counter

	// Cache metrics
	CacheGrowths       Counter
	CacheGrowthEntries Histogram
	CacheGrowthLatency Histogram
	CacheBypasses      Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Ledger metrics
		LedgerCreated:   factory.Counter("dpledger.ledger.created"),
		LedgerPersisted: factory.Counter("dpledger.ledger.persisted"),

		// Spend metrics
		EpsilonSpent:      factory.Counter("dpledger.spend.success"),
		SpendAmount:       factory.Histogram("dpledger.spend.epsilon"),
		SpendAttempts:     factory.Histogram("dpledger.spend.attempts"),
		SpendFailures:     factory.Counter("dpledger.spend.failures"),
		OverBudgetEvents:  factory.Counter("dpledger.budget.exceeded"),
		SubjectsOverLimit: factory.Counter("dpledger.budget.subjects_masked"),

		// Cache metrics
		CacheGrowths:       factory.Counter("dpledger.cache.growths"),
		CacheGrowthEntries: factory.Histogram("dpledger.cache.growth.entries"),
		CacheGrowthLatency: factory.Histogram("dpledger.cache.growth.latency_ms"),
		CacheBypasses:      factory.Counter("dpledger.cache.bypasses"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerCreated implements plugin.OnLedgerCreated.
func (m *MetricsExtension) OnLedgerCreated(_ context.Context, _ string) error {
	m.LedgerCreated.Inc()
	return nil
}

// OnLedgerPersisted implements plugin.OnLedgerPersisted.
func (m *MetricsExtension) OnLedgerPersisted(_ context.Context, _ string, _ uint64) error {
	m.LedgerPersisted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Budget protocol hooks
// ──────────────────────────────────────────────────

// OnEpsilonSpent implements plugin.OnEpsilonSpent.
func (m *MetricsExtension) OnEpsilonSpent(_ context.Context, _ string, spend, _ float64, attempts int) error {
	m.EpsilonSpent.Inc()
	m.SpendAmount.Observe(spend)
	m.SpendAttempts.Observe(float64(attempts))
	return nil
}

// OnOverBudget implements plugin.OnOverBudget.
func (m *MetricsExtension) OnOverBudget(_ context.Context, _ string, subjects []string) error {
	m.OverBudgetEvents.Inc()
	m.SubjectsOverLimit.Add(float64(len(subjects)))
	return nil
}

// OnSpendFailed implements plugin.OnSpendFailed.
func (m *MetricsExtension) OnSpendFailed(_ context.Context, _ string, _ float64, attempts int) error {
	m.SpendFailures.Inc()
	m.SpendAttempts.Observe(float64(attempts))
	return nil
}

// ──────────────────────────────────────────────────
// Cache hooks
// ──────────────────────────────────────────────────

// OnCacheGrown implements plugin.OnCacheGrown.
func (m *MetricsExtension) OnCacheGrown(_ context.Context, from, to int, elapsed time.Duration) error {
	m.CacheGrowths.Inc()
	m.CacheGrowthEntries.Observe(float64(to - from))
	m.CacheGrowthLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnCacheBypassed implements plugin.OnCacheBypassed.
func (m *MetricsExtension) OnCacheBypassed(_ context.Context, _ float64) error {
	m.CacheBypasses.Inc()
	return nil
}
