package subject

import (
	"maps"
	"slices"
	"time"

	"github.com/xraph/dpledger/types"
)

// Ledger is the accumulated privacy-loss record for one verify key: for every
// data subject that key has released information about, the sum of the RDP
// constants of all mechanism invocations so far. It is the single source of
// truth for "how much privacy has already been spent" and is read back from
// the store on every interaction.
//
// Constants only ever grow. The only way to reduce a subject's recorded loss
// is to replace the whole ledger.
type Ledger struct {
	types.Entity

	// Key identifies whose budget this ledger charges.
	Key Key `json:"key"`

	// Constants maps a data-subject identifier to its accumulated RDP constant.
	Constants map[string]float64 `json:"constants"`

	// UpdateCount strictly increases on every persisted write.
	UpdateCount uint64 `json:"update_count"`

	// LastUpdated is the wall-clock time of construction or last MarkUpdated.
	LastUpdated time.Time `json:"last_updated"`

	// PendingSave is set when a write to the ledger store failed and the
	// state in memory is ahead of the state on disk. Not persisted.
	PendingSave bool `json:"-"`
}

// NewLedger creates an empty ledger bound to the given key.
func NewLedger(key Key) *Ledger {
	return &Ledger{
		Entity:      types.NewEntity(),
		Key:         key,
		Constants:   make(map[string]float64),
		LastUpdated: time.Now().UTC(),
	}
}

// Accumulate adds the given per-subject RDP constants to the ledger.
// Composition is additive: calling with x then y yields x+y for a subject.
func (l *Ledger) Accumulate(constants map[string]float64) {
	if l.Constants == nil {
		l.Constants = make(map[string]float64, len(constants))
	}
	for name, c := range constants {
		l.Constants[name] += c
	}
}

// Snapshot returns the data-subject identifiers in sorted order together
// with their accumulated constants, index-aligned.
func (l *Ledger) Snapshot() ([]string, []float64) {
	names := slices.Sorted(maps.Keys(l.Constants))
	constants := make([]float64, len(names))
	for i, name := range names {
		constants[i] = l.Constants[name]
	}
	return names, constants
}

// MarkUpdated bumps the update counter and refreshes the timestamps.
// Call it immediately before persisting.
func (l *Ledger) MarkUpdated() {
	l.UpdateCount++
	l.LastUpdated = time.Now().UTC()
	l.Touch()
}

// Equal reports whether two ledgers agree on their persisted fields.
func (l *Ledger) Equal(other *Ledger) bool {
	if other == nil {
		return false
	}
	return l.Key == other.Key &&
		l.UpdateCount == other.UpdateCount &&
		l.LastUpdated.Equal(other.LastUpdated) &&
		maps.Equal(l.Constants, other.Constants)
}
