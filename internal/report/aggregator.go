// Package report rolls month ledgers up into the three summary views:
// property summary, outgoings and personal spending.
package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/storage"
)

// DefaultPersonalSpendingCategories is the stock personal-spending category
// set.
func DefaultPersonalSpendingCategories() []string {
	return []string{"PersonalExpense"}
}

// OtherSubcategory buckets personal spending with no subcategory.
const OtherSubcategory = "Other"

// Aggregator computes report summaries over month ranges. It reads ledgers in
// any lifecycle state; callers decide whether drafts are fresh enough.
type Aggregator struct {
	store    *storage.Store
	personal map[string]struct{}
}

// NewAggregator creates an aggregator. personalCategories defaults when empty.
func NewAggregator(store *storage.Store, personalCategories []string) *Aggregator {
	if len(personalCategories) == 0 {
		personalCategories = DefaultPersonalSpendingCategories()
	}
	set := make(map[string]struct{}, len(personalCategories))
	for _, c := range personalCategories {
		set[c] = struct{}{}
	}
	return &Aggregator{store: store, personal: set}
}

// monthTotals is the per-month aggregation state.
type monthTotals struct {
	byCategory    map[string]decimal.Decimal
	bySubcategory map[string]decimal.Decimal
}

// Summary aggregates the inclusive month range into the three parallel
// series. Every month in range gets a row even when it has no transactions;
// missing values are zero, never null.
func (a *Aggregator) Summary(ctx context.Context, from, to string) (*model.ReportSummary, error) {
	months, err := model.MonthRange(from, to)
	if err != nil {
		return nil, err
	}

	// Each goroutine owns its own slot in totals.
	totals := make([]monthTotals, len(months))

	g, gctx := errgroup.WithContext(ctx)
	for i, month := range months {
		i, month := i, month
		g.Go(func() error {
			transactions, err := a.store.GetTransactionsByMonth(gctx, month, storage.Filter{})
			if err != nil {
				return err
			}
			totals[i] = a.tally(transactions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &model.ReportSummary{
		PropertySummary:  make([]model.PropertySummaryRow, 0, len(months)),
		Outgoings:        make([]model.OutgoingsRow, 0, len(months)),
		PersonalSpending: make([]model.PersonalSpendingRow, 0, len(months)),
	}

	outgoingCols := observedColumns(months, totals, func(t monthTotals) map[string]decimal.Decimal {
		return t.byCategory
	}, isOutgoingCategory)
	personalCols := observedColumns(months, totals, func(t monthTotals) map[string]decimal.Decimal {
		return t.bySubcategory
	}, func(string) bool { return true })

	for i, month := range months {
		t := totals[i]
		summary.PropertySummary = append(summary.PropertySummary, propertyRow(month, t))
		summary.Outgoings = append(summary.Outgoings, model.OutgoingsRow{
			Month:  month,
			Totals: projectColumns(t.byCategory, outgoingCols),
		})
		summary.PersonalSpending = append(summary.PersonalSpending, model.PersonalSpendingRow{
			Month:  month,
			Totals: projectColumns(t.bySubcategory, personalCols),
		})
	}
	return summary, nil
}

func (a *Aggregator) tally(transactions []model.Transaction) monthTotals {
	t := monthTotals{
		byCategory:    make(map[string]decimal.Decimal),
		bySubcategory: make(map[string]decimal.Decimal),
	}
	for i := range transactions {
		txn := &transactions[i]
		if txn.Category != "" {
			t.byCategory[txn.Category] = t.byCategory[txn.Category].Add(txn.Amount)
		}
		if _, ok := a.personal[txn.Category]; ok {
			sub := txn.Subcategory
			if sub == "" {
				sub = OtherSubcategory
			}
			t.bySubcategory[sub] = t.bySubcategory[sub].Add(txn.Amount)
		}
	}
	return t
}

func propertyRow(month string, t monthTotals) model.PropertySummaryRow {
	row := model.PropertySummaryRow{
		Month:           month,
		Mortgage:        t.byCategory[model.CategoryMortgage],
		PropertyExpense: t.byCategory[model.CategoryPropertyExpense],
		ServiceCharge:   t.byCategory[model.CategoryServiceCharge],
		OurRent:         t.byCategory[model.CategoryOurRent],
		BealsRent:       t.byCategory[model.CategoryBealsRent],
	}
	row.TotalRent = row.OurRent.Add(row.BealsRent)
	row.NetProfit = row.TotalRent.
		Sub(row.Mortgage).
		Sub(row.PropertyExpense).
		Sub(row.ServiceCharge)
	return row
}

func isOutgoingCategory(category string) bool {
	for _, fixed := range model.PropertySummaryCategories() {
		if category == fixed {
			return false
		}
	}
	return true
}

// observedColumns returns the sorted column names that have a non-zero value
// in at least one month of the range.
func observedColumns(months []string, totals []monthTotals,
	pick func(monthTotals) map[string]decimal.Decimal, keep func(string) bool) []string {
	seen := make(map[string]struct{})
	for i := range months {
		for name, sum := range pick(totals[i]) {
			if !keep(name) || sum.IsZero() {
				continue
			}
			seen[name] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// projectColumns builds a row with every column present, zero-filled.
func projectColumns(sums map[string]decimal.Decimal, cols []string) map[string]decimal.Decimal {
	row := make(map[string]decimal.Decimal, len(cols))
	for _, name := range cols {
		row[name] = sums[name]
	}
	return row
}
