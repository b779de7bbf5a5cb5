package engine

import (
	"context"
	"errors"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/storage"
)

// Reads are lock-free snapshot reads: they never take the per-month mutation
// lock and may observe any consistent prior state.

// Months returns all month ledgers, newest first.
func (e *Engine) Months(ctx context.Context) ([]model.MonthLedger, error) {
	return e.store.ListMonths(ctx)
}

// Lists returns the full list registry.
func (e *Engine) Lists(ctx context.Context) (*model.Lists, error) {
	return e.store.GetLists(ctx)
}

// Draft returns a month's transactions narrowed by the filter.
func (e *Engine) Draft(ctx context.Context, month string, filter storage.Filter) ([]model.Transaction, error) {
	ledger, err := e.store.GetMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, common.NotFoundf("month %s", month)
	}
	return e.store.GetTransactionsByMonth(ctx, month, filter)
}

// ReviewQueue returns the filtered subset of a month's transactions currently
// flagged for review.
func (e *Engine) ReviewQueue(ctx context.Context, month string, filter storage.Filter) ([]model.Transaction, error) {
	filter.NeedsReviewOnly = true
	return e.Draft(ctx, month, filter)
}

// AddListValue appends a value to a list domain. Adding an existing value is
// an idempotent no-op, not an error; the value is returned either way.
func (e *Engine) AddListValue(ctx context.Context, caller Caller, domain model.ListDomain, value string) (string, error) {
	err := e.store.AddListValue(ctx, domain, value)
	if err != nil && !errors.Is(err, common.ErrDuplicate) {
		return "", err
	}
	return value, nil
}
