// Package rules implements the ordered classification rules: matching,
// confidence scoring, the review-flag policy, and synthesis of new rules from
// repeated manual corrections.
package rules

import (
	"regexp"
	"strings"

	"github.com/maffers001/property/internal/model"
)

// UncategorizedCategory labels transactions no rule matched.
const UncategorizedCategory = "Uncategorized"

// Confidence produced per rule strength. Catch-all sits below the review
// threshold so its matches always queue for review.
var strengthConfidence = map[model.RuleStrength]float64{
	model.StrengthExact:    0.97,
	model.StrengthPattern:  0.86,
	model.StrengthCatchAll: 0.65,
}

// Classification is the outcome of matching one transaction against the rule
// set.
type Classification struct {
	PropertyCode string
	Category     string
	Subcategory  string
	Strength     model.RuleStrength
	RuleID       int64
	Confidence   float64
}

// Matcher evaluates transactions against an ordered rule set; the first
// active match wins.
type Matcher struct {
	compiledRegex map[int64]*regexp.Regexp
	rules         []model.Rule
}

// NewMatcher creates a matcher over the given rules, which must already be in
// evaluation order. Regex patterns are pre-compiled; rules whose pattern does
// not compile never match.
func NewMatcher(rules []model.Rule) *Matcher {
	m := &Matcher{
		rules:         rules,
		compiledRegex: make(map[int64]*regexp.Regexp),
	}

	for _, rule := range rules {
		if rule.IsRegex && rule.MemoPattern != "" {
			if re, err := regexp.Compile("(?i)" + rule.MemoPattern); err == nil {
				m.compiledRegex[rule.ID] = re
			}
		}
	}
	return m
}

// Match returns the first active rule the transaction satisfies.
func (m *Matcher) Match(txn model.Transaction) (*model.Rule, bool) {
	for i := range m.rules {
		rule := &m.rules[i]
		if !rule.IsActive {
			continue
		}
		if m.matchesRule(txn, rule) {
			return rule, true
		}
	}
	return nil, false
}

// Classify matches the transaction and produces its labels, strength and
// confidence. When no rule matches the transaction is uncategorized with zero
// confidence.
func (m *Matcher) Classify(txn model.Transaction) Classification {
	rule, ok := m.Match(txn)
	if !ok {
		return Classification{
			Category:   UncategorizedCategory,
			Strength:   model.StrengthCatchAll,
			Confidence: 0,
		}
	}

	return Classification{
		PropertyCode: rule.PropertyCode,
		Category:     rule.Category,
		Subcategory:  rule.Subcategory,
		Strength:     rule.Strength,
		RuleID:       rule.ID,
		Confidence:   strengthConfidence[rule.Strength],
	}
}

func (m *Matcher) matchesRule(txn model.Transaction, rule *model.Rule) bool {
	if !m.matchesMemo(txn, rule) {
		return false
	}
	if rule.Account != "" && rule.Account != txn.Account {
		return false
	}
	return matchesAmount(txn, rule)
}

func (m *Matcher) matchesMemo(txn model.Transaction, rule *model.Rule) bool {
	if rule.MemoPattern == "" {
		return true // no memo pattern means match all
	}

	if rule.IsRegex {
		re, ok := m.compiledRegex[rule.ID]
		return ok && re.MatchString(txn.Memo)
	}

	// Substring match, case-insensitive
	return strings.Contains(strings.ToLower(txn.Memo), strings.ToLower(rule.MemoPattern))
}

func matchesAmount(txn model.Transaction, rule *model.Rule) bool {
	amount := txn.Amount

	switch rule.AmountCondition {
	case "", model.AmountAny:
		return true
	case model.AmountPositive:
		return amount.IsPositive()
	case model.AmountNegative:
		return amount.IsNegative()
	case model.AmountLessThan:
		return rule.AmountValue != nil && amount.LessThan(*rule.AmountValue)
	case model.AmountLessEq:
		return rule.AmountValue != nil && amount.LessThanOrEqual(*rule.AmountValue)
	case model.AmountEqual:
		return rule.AmountValue != nil && amount.Equal(*rule.AmountValue)
	case model.AmountGreatEq:
		return rule.AmountValue != nil && amount.GreaterThanOrEqual(*rule.AmountValue)
	case model.AmountGreater:
		return rule.AmountValue != nil && amount.GreaterThan(*rule.AmountValue)
	case model.AmountRange:
		if rule.AmountMin != nil && amount.LessThan(*rule.AmountMin) {
			return false
		}
		if rule.AmountMax != nil && amount.GreaterThan(*rule.AmountMax) {
			return false
		}
		return true
	}

	return false
}
