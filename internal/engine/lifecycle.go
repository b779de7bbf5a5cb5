package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/storage"
)

// Submit accepts the month's current classifications: every queued
// transaction leaves the review queue with its review time stamped, and an
// OPEN ledger advances to SUBMITTED. The whole reconciliation is one atomic
// unit. Idempotent: a second call with no intervening mutation reconciles
// zero transactions and leaves the state alone; state never regresses.
func (e *Engine) Submit(ctx context.Context, caller Caller, month string) (int, error) {
	unlock := e.lockMonth(month)
	defer unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	ledger, err := tx.GetMonth(ctx, month)
	if err != nil {
		return 0, err
	}
	if ledger == nil {
		return 0, common.NotFoundf("month %s", month)
	}
	if ledger.Locked() {
		// A finalized ledger has nothing left to reconcile.
		return 0, nil
	}

	applied, err := tx.ClearReviewQueue(ctx, month, e.now())
	if err != nil {
		return 0, err
	}

	if ledger.State == model.StateOpen {
		if err := tx.AdvanceMonthState(ctx, month, model.StateSubmitted); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit submission: %w", err)
	}

	slog.Info("month submitted",
		"month", month,
		"applied", applied,
		"caller", caller.Subject)
	return applied, nil
}

// Finalize locks the month and writes its durable export artifact, returning
// the artifact path. Allowed from SUBMITTED, or from OPEN when the review
// queue is empty; anything else is NotReady. Re-finalizing returns the
// recorded path without recomputing, so historical figures never silently
// change.
func (e *Engine) Finalize(ctx context.Context, caller Caller, month string) (string, error) {
	unlock := e.lockMonth(month)
	defer unlock()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	ledger, err := tx.GetMonth(ctx, month)
	if err != nil {
		return "", err
	}
	if ledger == nil {
		return "", common.NotFoundf("month %s", month)
	}
	if ledger.State == model.StateFinalized {
		return ledger.ArtifactPath, nil
	}

	if ledger.State == model.StateOpen {
		_, inReview, err := tx.CountMonthTransactions(ctx, month)
		if err != nil {
			return "", err
		}
		if inReview > 0 {
			return "", fmt.Errorf("%w: %s has %d transactions awaiting review; submit first",
				common.ErrNotReady, month, inReview)
		}
	}

	transactions, err := tx.GetTransactionsByMonth(ctx, month, storage.Filter{})
	if err != nil {
		return "", err
	}

	path, err := e.exporter.WriteMonth(month, transactions)
	if err != nil {
		return "", fmt.Errorf("failed to write finalize artifact: %w", err)
	}

	if err := tx.FinalizeMonth(ctx, month, path, e.now()); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit finalize: %w", err)
	}

	slog.Info("month finalized",
		"month", month,
		"artifact", path,
		"caller", caller.Subject)
	return path, nil
}
