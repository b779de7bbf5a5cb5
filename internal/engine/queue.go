package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/storage"
)

// QueuePredicate selects transactions for bulk queue addition. Zero value
// matches every transaction in the month. PropertyEmpty restricts matches to
// money-movement categories that are missing a property code.
type QueuePredicate struct {
	Category      string
	PropertyEmpty bool
}

// AddToQueue flags the listed transactions for review. Unknown ids fail the
// whole batch with NotFound; ids already queued are no-ops. Returns the
// number of transactions actually changed.
func (e *Engine) AddToQueue(ctx context.Context, caller Caller, month string, txIDs []string) (int, error) {
	return e.setQueueMembership(ctx, caller, month, txIDs, true)
}

// RemoveFromQueue clears the review flag on the listed transactions, with the
// same idempotency and reporting contract as AddToQueue.
func (e *Engine) RemoveFromQueue(ctx context.Context, caller Caller, month string, txIDs []string) (int, error) {
	return e.setQueueMembership(ctx, caller, month, txIDs, false)
}

func (e *Engine) setQueueMembership(ctx context.Context, caller Caller, month string, txIDs []string, inReview bool) (int, error) {
	ids := dedupe(txIDs)
	if len(ids) == 0 {
		return 0, nil
	}

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
		return 0, common.LockedMonthf(month)
	}

	existing, err := tx.CountExisting(ctx, month, ids)
	if err != nil {
		return 0, err
	}
	if existing != len(ids) {
		missing, err := e.firstMissing(ctx, tx, month, ids)
		if err != nil {
			return 0, err
		}
		return 0, common.NotFoundf("transaction %s in month %s", missing, month)
	}

	changed, err := tx.SetNeedsReview(ctx, month, ids, inReview)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit queue change: %w", err)
	}

	slog.Info("review queue updated",
		"month", month,
		"in_review", inReview,
		"requested", len(ids),
		"changed", changed,
		"caller", caller.Subject)
	return changed, nil
}

// AddToQueueByRule scans the month and queues every transaction matching the
// predicate, skipping ids already queued. The scan and update run as one
// atomic unit. Returns the number added.
func (e *Engine) AddToQueueByRule(ctx context.Context, caller Caller, month string, pred QueuePredicate) (int, error) {
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
		// An absent month has nothing to surface.
		return 0, nil
	}
	if ledger.Locked() {
		return 0, common.LockedMonthf(month)
	}

	transactions, err := tx.GetTransactionsByMonth(ctx, month, storage.Filter{})
	if err != nil {
		return 0, err
	}

	var ids []string
	for i := range transactions {
		txn := &transactions[i]
		if txn.NeedsReview {
			continue
		}
		if pred.Category != "" && txn.Category != pred.Category {
			continue
		}
		if pred.PropertyEmpty {
			if !e.policy.IsMoneyMovement(txn.Category) || txn.PropertyCode != "" {
				continue
			}
		}
		ids = append(ids, txn.ID)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	changed, err := tx.SetNeedsReview(ctx, month, ids, true)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk queue add: %w", err)
	}

	slog.Info("review queue bulk add",
		"month", month,
		"category", pred.Category,
		"property_empty", pred.PropertyEmpty,
		"added", changed,
		"caller", caller.Subject)
	return changed, nil
}

func (e *Engine) firstMissing(ctx context.Context, tx *storage.Tx, month string, ids []string) (string, error) {
	for _, id := range ids {
		txn, err := tx.GetTransactionByID(ctx, id)
		if err != nil {
			return "", err
		}
		if txn == nil || txn.Month != month {
			return id, nil
		}
	}
	return "", fmt.Errorf("no missing transaction found in batch for month %s", month)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
