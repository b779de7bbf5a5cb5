package model

import "time"

// LedgerState is the lifecycle state of a month ledger. It only ever advances
// forward: OPEN -> SUBMITTED -> FINALIZED.
type LedgerState string

// Ledger lifecycle constants.
const (
	StateOpen      LedgerState = "OPEN"
	StateSubmitted LedgerState = "SUBMITTED"
	StateFinalized LedgerState = "FINALIZED"
)

// CanAdvanceTo reports whether a transition from s to next is a legal forward
// move. Staying in place is allowed (submit and finalize are idempotent).
func (s LedgerState) CanAdvanceTo(next LedgerState) bool {
	rank := map[LedgerState]int{StateOpen: 0, StateSubmitted: 1, StateFinalized: 2}
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	if !ok {
		return false
	}
	return to >= from
}

// MonthLedger is the per-month header row: lifecycle state plus the finalize
// artifact once one exists.
type MonthLedger struct {
	FinalizedAt      *time.Time
	Month            string // YYYY-MM
	State            LedgerState
	ArtifactPath     string
	TransactionCount int
}

// Locked reports whether the ledger rejects further mutation. Submission is
// not a hard freeze; only finalize locks the month.
func (m *MonthLedger) Locked() bool {
	return m.State == StateFinalized
}
