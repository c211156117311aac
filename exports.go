package dpledger

import (
	"github.com/xraph/dpledger/subject"
	"github.com/xraph/dpledger/types"
)

// Re-export common types for convenience so users don't have to import the
// subject and types packages.

// Key is re-exported from the subject package.
type Key = subject.Key

// Ledger is re-exported from the subject package.
type Ledger = subject.Ledger

// Entity is re-exported from the types package.
type Entity = types.Entity

// Re-export constructors and parsers.
var (
	NewLedger = subject.NewLedger
	ParseKey  = subject.ParseKey
	NewEntity = types.NewEntity
)
