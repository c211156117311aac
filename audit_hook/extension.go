// Package audithook bridges dpledger accounting events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time. Privacy-budget failures are security-relevant
// events, so every spend outcome is auditable with its key, amount and
// attempt count.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/dpledger/id"
	"github.com/xraph/dpledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnLedgerCreated   = (*Extension)(nil)
	_ plugin.OnLedgerPersisted = (*Extension)(nil)
	_ plugin.OnEpsilonSpent    = (*Extension)(nil)
	_ plugin.OnOverBudget      = (*Extension)(nil)
	_ plugin.OnSpendFailed     = (*Extension)(nil)
	_ plugin.OnCacheGrown      = (*Extension)(nil)
	_ plugin.OnCacheBypassed   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges accounting lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerCreated implements plugin.OnLedgerCreated.
func (e *Extension) OnLedgerCreated(ctx context.Context, key string) error {
	return e.record(ctx, ActionLedgerCreated, SeverityInfo, OutcomeSuccess,
		ResourceLedger, key, CategoryPrivacy, nil,
		"key", key,
	)
}

// OnLedgerPersisted implements plugin.OnLedgerPersisted.
func (e *Extension) OnLedgerPersisted(ctx context.Context, key string, updateCount uint64) error {
	return e.record(ctx, ActionLedgerPersisted, SeverityInfo, OutcomeSuccess,
		ResourceLedger, key, CategoryPrivacy, nil,
		"key", key,
		"update_count", updateCount,
	)
}

// ──────────────────────────────────────────────────
// Budget protocol hooks
// ──────────────────────────────────────────────────

// OnEpsilonSpent implements plugin.OnEpsilonSpent.
func (e *Extension) OnEpsilonSpent(ctx context.Context, key string, spend, newBudget float64, attempts int) error {
	return e.record(ctx, ActionEpsilonSpent, SeverityInfo, OutcomeSuccess,
		ResourceBudget, key, CategoryPrivacy, nil,
		"key", key,
		"spend", spend,
		"new_budget", newBudget,
		"attempts", attempts,
	)
}

// OnOverBudget implements plugin.OnOverBudget.
func (e *Extension) OnOverBudget(ctx context.Context, key string, subjects []string) error {
	return e.record(ctx, ActionBudgetExceeded, SeverityWarning, OutcomePartial,
		ResourceBudget, key, CategoryAccess, nil,
		"key", key,
		"subjects", subjects,
		"subject_count", len(subjects),
	)
}

// OnSpendFailed implements plugin.OnSpendFailed.
func (e *Extension) OnSpendFailed(ctx context.Context, key string, spend float64, attempts int) error {
	return e.record(ctx, ActionSpendFailed, SeverityCritical, OutcomeFailure,
		ResourceBudget, key, CategoryPrivacy, nil,
		"key", key,
		"spend", spend,
		"attempts", attempts,
	)
}

// ──────────────────────────────────────────────────
// Cache hooks
// ──────────────────────────────────────────────────

// OnCacheGrown implements plugin.OnCacheGrown.
func (e *Extension) OnCacheGrown(ctx context.Context, from, to int, elapsed time.Duration) error {
	return e.record(ctx, ActionCacheGrown, SeverityInfo, OutcomeSuccess,
		ResourceCache, "", CategorySystem, nil,
		"from", from,
		"to", to,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnCacheBypassed implements plugin.OnCacheBypassed.
func (e *Extension) OnCacheBypassed(ctx context.Context, maxConstant float64) error {
	return e.record(ctx, ActionCacheBypassed, SeverityWarning, OutcomeSuccess,
		ResourceCache, "", CategorySystem, nil,
		"max_constant", maxConstant,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID().String(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
