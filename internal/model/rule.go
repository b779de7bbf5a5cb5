package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountCondition restricts a rule to transactions with a matching amount.
type AmountCondition string

// Amount condition constants.
const (
	AmountAny      AmountCondition = "any"
	AmountLessThan AmountCondition = "lt"
	AmountLessEq   AmountCondition = "le"
	AmountEqual    AmountCondition = "eq"
	AmountGreatEq  AmountCondition = "ge"
	AmountGreater  AmountCondition = "gt"
	AmountRange    AmountCondition = "range"
	AmountPositive AmountCondition = "positive"
	AmountNegative AmountCondition = "negative"
)

// Rule matches transactions by memo, account and amount and supplies the
// property/category/subcategory labels plus a strength tag. Rules are ordered
// by priority; the first active match wins.
type Rule struct {
	CreatedAt       time.Time
	AmountValue     *decimal.Decimal
	AmountMin       *decimal.Decimal
	AmountMax       *decimal.Decimal
	Name            string
	MemoPattern     string
	Account         string
	AmountCondition AmountCondition
	PropertyCode    string
	Category        string
	Subcategory     string
	Strength        RuleStrength
	ID              int64
	Priority        int
	UseCount        int
	IsRegex         bool
	IsActive        bool
}

// Correction is one manual relabeling of a transaction, as seen by the rule
// synthesis policy.
type Correction struct {
	Memo         string
	PropertyCode string
	Category     string
	Subcategory  string
}
