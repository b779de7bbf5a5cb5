// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleStrength indicates the provenance of a transaction's classification.
type RuleStrength string

// Rule strength constants, ordered from most to least trusted.
const (
	StrengthExact    RuleStrength = "exact"
	StrengthPattern  RuleStrength = "pattern"
	StrengthCatchAll RuleStrength = "catch_all"
	StrengthManual   RuleStrength = "manual"
)

// Transaction is one bank transaction within a month ledger.
//
// Amount is fixed at ingestion and never mutated. Confidence is produced only
// by rule matching; a nil Confidence means the classification was set manually
// and is authoritative. ReviewedAt is stamped only when a transaction leaves
// the review queue through a month submission.
type Transaction struct {
	Date         time.Time
	ReviewedAt   *time.Time
	Confidence   *float64
	ID           string
	Month        string // YYYY-MM
	Account      string
	Memo         string
	PropertyCode string
	Category     string
	Subcategory  string
	RuleStrength RuleStrength
	Amount       decimal.Decimal
	NeedsReview  bool
}

// InReview reports whether the transaction is currently flagged for review.
func (t *Transaction) InReview() bool {
	return t.NeedsReview
}

// ManuallyClassified reports whether the current labels came from a user
// correction rather than a rule match.
func (t *Transaction) ManuallyClassified() bool {
	return t.RuleStrength == StrengthManual
}

// IncomingTransaction is the shape the ingestion collaborator hands us:
// raw fields only, no identity and no classification yet.
type IncomingTransaction struct {
	Date    time.Time
	Account string
	Memo    string
	Amount  decimal.Decimal
}
