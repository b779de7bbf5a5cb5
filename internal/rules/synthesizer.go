package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/maffers001/property/internal/model"
)

// DefaultSynthesisThreshold is how many identical manual corrections it takes
// before a pattern rule is materialized.
const DefaultSynthesisThreshold = 3

// SynthesizedRulePriority places synthesized rules after curated ones but
// ahead of catch-alls.
const SynthesizedRulePriority = 100

// Synthesizer observes manual corrections and may propose a new rule so the
// same pattern is not re-flagged on future ingestions. Proposed rules apply
// only to future classification, never retroactively.
type Synthesizer interface {
	Observe(c model.Correction) (*model.Rule, bool)
}

// RecurrenceSynthesizer materializes a pattern-strength rule once the same
// normalized memo has received the same correction a configured number of
// times.
type RecurrenceSynthesizer struct {
	counts    map[string]int
	emitted   map[string]bool
	threshold int
	mu        sync.Mutex
}

// NewRecurrenceSynthesizer creates a synthesizer with the given threshold.
// A threshold below 1 disables synthesis.
func NewRecurrenceSynthesizer(threshold int) *RecurrenceSynthesizer {
	return &RecurrenceSynthesizer{
		threshold: threshold,
		counts:    make(map[string]int),
		emitted:   make(map[string]bool),
	}
}

// Observe records one correction and returns a new rule once the recurrence
// threshold is reached. Each memo/target pair produces at most one rule.
func (s *RecurrenceSynthesizer) Observe(c model.Correction) (*model.Rule, bool) {
	if s.threshold < 1 || c.Category == "" {
		return nil, false
	}

	memoKey := NormalizeMemo(c.Memo)
	if memoKey == "" {
		return nil, false
	}
	key := memoKey + "\x00" + c.PropertyCode + "\x00" + c.Category + "\x00" + c.Subcategory

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emitted[key] {
		return nil, false
	}
	s.counts[key]++
	if s.counts[key] < s.threshold {
		return nil, false
	}
	s.emitted[key] = true

	rule := &model.Rule{
		Name:            fmt.Sprintf("learned: %s -> %s", memoKey, c.Category),
		Priority:        SynthesizedRulePriority,
		MemoPattern:     MemoPattern(c.Memo),
		IsRegex:         true,
		AmountCondition: model.AmountAny,
		PropertyCode:    c.PropertyCode,
		Category:        c.Category,
		Subcategory:     c.Subcategory,
		Strength:        model.StrengthPattern,
		IsActive:        true,
	}
	return rule, true
}

var (
	digitRun = regexp.MustCompile(`[0-9]+`)
	spaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeMemo reduces a memo to its recurrence key: upper-cased, digit runs
// collapsed to a placeholder, whitespace collapsed.
func NormalizeMemo(memo string) string {
	memo = strings.ToUpper(strings.TrimSpace(memo))
	memo = digitRun.ReplaceAllString(memo, "#")
	return spaceRun.ReplaceAllString(memo, " ")
}

// MemoPattern builds the regex a synthesized rule matches with: the literal
// memo with digit and whitespace runs generalized.
func MemoPattern(memo string) string {
	quoted := regexp.QuoteMeta(strings.TrimSpace(memo))
	quoted = digitRun.ReplaceAllString(quoted, `[0-9]+`)
	return spaceRun.ReplaceAllString(quoted, `\s+`)
}
