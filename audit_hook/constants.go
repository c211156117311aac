package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionLedgerCreated   = "ledger.created"
	ActionLedgerPersisted = "ledger.persisted"

	// Budget actions
	ActionEpsilonSpent   = "epsilon.spent"
	ActionBudgetExceeded = "budget.exceeded"
	ActionSpendFailed    = "spend.failed"

	// Cache actions
	ActionCacheGrown    = "cache.grown"
	ActionCacheBypassed = "cache.bypassed"
)

// Resource constants for audit events.
const (
	ResourceLedger = "ledger"
	ResourceBudget = "budget"
	ResourceCache  = "epsilon_cache"
)

// Category constants for audit events.
const (
	CategoryPrivacy = "privacy"
	CategoryAccess  = "access"
	CategorySystem  = "system"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
