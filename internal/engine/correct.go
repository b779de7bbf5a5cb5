package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/model"
)

// Correct applies a manual label override to one transaction. Non-empty
// values are validated against the list registry before anything mutates; an
// empty value clears the field. The transaction becomes manually classified
// (strength manual, confidence cleared). Review-queue membership is left
// untouched: clearing it is an explicit queue operation so a user can correct
// several transactions before bulk-removing them.
func (e *Engine) Correct(ctx context.Context, caller Caller, txID, propertyCode, category, subcategory string) error {
	if strings.TrimSpace(txID) == "" {
		return common.NotFoundf("transaction id is empty")
	}

	// Locate the month first so the right ledger lock is taken.
	located, err := e.store.GetTransactionByID(ctx, txID)
	if err != nil {
		return err
	}
	if located == nil {
		return common.NotFoundf("transaction %s", txID)
	}
	month := located.Month

	if err := e.validateLabels(ctx, propertyCode, category, subcategory); err != nil {
		return err
	}

	unlock := e.lockMonth(month)
	defer unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ledger, err := tx.GetMonth(ctx, month)
	if err != nil {
		return err
	}
	if ledger == nil {
		return common.NotFoundf("month %s", month)
	}
	if ledger.Locked() {
		return common.LockedMonthf(month)
	}

	txn, err := tx.GetTransactionByID(ctx, txID)
	if err != nil {
		return err
	}
	if txn == nil {
		return common.NotFoundf("transaction %s", txID)
	}

	if err := tx.UpdateLabels(ctx, txID, propertyCode, category, subcategory); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit correction: %w", err)
	}

	slog.Info("applied correction",
		"tx_id", txID,
		"month", month,
		"category", category,
		"caller", caller.Subject)

	e.observeCorrection(ctx, model.Correction{
		Memo:         txn.Memo,
		PropertyCode: propertyCode,
		Category:     category,
		Subcategory:  subcategory,
	})
	return nil
}

// validateLabels checks each non-empty value against its registry domain.
func (e *Engine) validateLabels(ctx context.Context, propertyCode, category, subcategory string) error {
	check := func(domain model.ListDomain, value string) error {
		if value == "" {
			return nil
		}
		ok, err := e.store.HasListValue(ctx, domain, value)
		if err != nil {
			return err
		}
		if !ok {
			return common.UnknownListValuef(string(domain), value)
		}
		return nil
	}

	if err := check(model.DomainProperty, propertyCode); err != nil {
		return err
	}
	if err := check(model.DomainCategory, category); err != nil {
		return err
	}
	return check(model.DomainSubcategory, subcategory)
}

// observeCorrection feeds the synthesis policy. A materialized rule only
// affects future ingestions; failure to store one never fails the correction.
func (e *Engine) observeCorrection(ctx context.Context, c model.Correction) {
	rule, ok := e.synth.Observe(c)
	if !ok {
		return
	}
	if err := e.store.CreateRule(ctx, rule); err != nil {
		slog.Warn("failed to store synthesized rule",
			"name", rule.Name,
			"error", err)
		return
	}
	slog.Info("synthesized rule from repeated corrections",
		"id", rule.ID,
		"name", rule.Name)
}
