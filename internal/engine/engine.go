// Package engine implements the transaction review and categorization core:
// ingestion-time classification, the per-month review queue, manual
// corrections, and the month submit/finalize lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/export"
	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/rules"
	"github.com/maffers001/property/internal/storage"
)

// Caller identifies the authenticated user an operation runs as. Token
// issuance and validation live in the auth collaborator; the engine only
// needs the identity.
type Caller struct {
	Subject string
}

// Engine owns the per-month ledgers and serializes mutations per month.
type Engine struct {
	store    *storage.Store
	exporter export.Writer
	synth    rules.Synthesizer
	policy   rules.ReviewPolicy
	locks    sync.Map // month -> *sync.Mutex
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithReviewPolicy overrides the default review-flag policy.
func WithReviewPolicy(p rules.ReviewPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithSynthesizer overrides the default rule synthesis policy.
func WithSynthesizer(s rules.Synthesizer) Option {
	return func(e *Engine) { e.synth = s }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given store and artifact writer.
func New(store *storage.Store, exporter export.Writer, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		exporter: exporter,
		synth:    rules.NewRecurrenceSynthesizer(rules.DefaultSynthesisThreshold),
		policy:   rules.DefaultReviewPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the active review-flag policy.
func (e *Engine) Policy() rules.ReviewPolicy {
	return e.policy
}

// lockMonth acquires the mutation lock for a month and returns its release
// function. All writes to one month's ledger run under this lock, so queue
// edits, corrections, submit and finalize are linearizable per month while
// different months proceed independently. Reads do not take it.
func (e *Engine) lockMonth(month string) func() {
	v, _ := e.locks.LoadOrStore(month, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Ingest receives a batch of raw transactions from the ingestion collaborator,
// classifies each against the current rule set, applies the review-flag
// policy, and stores them under the month's ledger (created OPEN if absent).
// Returns the number ingested.
func (e *Engine) Ingest(ctx context.Context, caller Caller, month string, incoming []model.IncomingTransaction) (int, error) {
	if _, err := model.ParseMonth(month); err != nil {
		return 0, err
	}
	if len(incoming) == 0 {
		return 0, nil
	}

	unlock := e.lockMonth(month)
	defer unlock()

	ledger, err := e.store.GetMonth(ctx, month)
	if err != nil {
		return 0, err
	}
	if ledger != nil && ledger.Locked() {
		return 0, common.LockedMonthf(month)
	}
	if ledger == nil {
		if err := e.store.EnsureMonth(ctx, month); err != nil {
			return 0, err
		}
	}

	activeRules, err := e.store.GetActiveRules(ctx)
	if err != nil {
		return 0, err
	}
	matcher := rules.NewMatcher(activeRules)

	transactions := make([]model.Transaction, 0, len(incoming))
	matchedRules := make(map[int64]int)
	for _, in := range incoming {
		txn := model.Transaction{
			ID:      uuid.NewString(),
			Month:   month,
			Date:    in.Date,
			Account: in.Account,
			Amount:  in.Amount.Round(2),
			Memo:    in.Memo,
		}

		c := matcher.Classify(txn)
		txn.PropertyCode = c.PropertyCode
		txn.Category = c.Category
		txn.Subcategory = c.Subcategory
		txn.RuleStrength = c.Strength
		conf := c.Confidence
		txn.Confidence = &conf
		txn.NeedsReview = e.policy.Evaluate(c)
		if c.RuleID != 0 {
			matchedRules[c.RuleID]++
		}

		transactions = append(transactions, txn)
	}

	// The registry must contain every value a stored transaction references.
	if err := e.registerLabels(ctx, transactions); err != nil {
		return 0, err
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.SaveTransactions(ctx, transactions); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ingestion: %w", err)
	}

	for ruleID, count := range matchedRules {
		for i := 0; i < count; i++ {
			if err := e.store.IncrementRuleUseCount(ctx, ruleID); err != nil {
				slog.Warn("failed to bump rule use count", "rule_id", ruleID, "error", err)
				break
			}
		}
	}

	slog.Info("ingested transactions",
		"month", month,
		"count", len(transactions),
		"caller", caller.Subject)
	return len(transactions), nil
}

func (e *Engine) registerLabels(ctx context.Context, transactions []model.Transaction) error {
	add := func(domain model.ListDomain, value string) error {
		if value == "" {
			return nil
		}
		err := e.store.AddListValue(ctx, domain, value)
		if err != nil && !errors.Is(err, common.ErrDuplicate) {
			return err
		}
		return nil
	}

	for i := range transactions {
		txn := &transactions[i]
		if err := add(model.DomainProperty, txn.PropertyCode); err != nil {
			return err
		}
		if err := add(model.DomainCategory, txn.Category); err != nil {
			return err
		}
		if err := add(model.DomainSubcategory, txn.Subcategory); err != nil {
			return err
		}
	}
	return nil
}
