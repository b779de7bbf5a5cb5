package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maffers001/property/internal/model"
)

// Filter narrows transaction queries. Zero value means no filtering.
type Filter struct {
	DateFrom        *time.Time
	DateTo          *time.Time
	Search          string
	Properties      []string
	Categories      []string
	Subcategories   []string
	NeedsReviewOnly bool
}

const txColumns = `tx_id, month, date, account, amount, memo,
	property_code, category, subcategory, confidence, rule_strength,
	needs_review, reviewed_at`

// SaveTransactions inserts a batch of transactions.
func (s *Store) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return saveTransactions(ctx, s.db, transactions)
}

// SaveTransactions inserts a batch of transactions within the transaction.
func (t *Tx) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return saveTransactions(ctx, t.tx, transactions)
}

func saveTransactions(ctx context.Context, q querier, transactions []model.Transaction) error {
	query := `
		INSERT INTO transactions (` + txColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range transactions {
		txn := &transactions[i]
		var confidence any
		if txn.Confidence != nil {
			confidence = *txn.Confidence
		}
		var reviewedAt any
		if txn.ReviewedAt != nil {
			reviewedAt = *txn.ReviewedAt
		}
		_, err := q.ExecContext(ctx, query,
			txn.ID, txn.Month, txn.Date, txn.Account, txn.Amount.StringFixed(2),
			txn.Memo, txn.PropertyCode, txn.Category, txn.Subcategory,
			confidence, string(txn.RuleStrength), boolToInt(txn.NeedsReview), reviewedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	slog.Debug("saved transactions", "count", len(transactions))
	return nil
}

// GetTransactionByID returns a transaction, or nil when the id is unknown.
func (s *Store) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, s.db, id)
}

// GetTransactionByID returns a transaction within the transaction.
func (t *Tx) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, t.tx, id)
}

func getTransactionByID(ctx context.Context, q querier, id string) (*model.Transaction, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE tx_id = ?`, id)
	txn, err := scanTransactionRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil // transaction not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// GetTransactionsByMonth returns transactions for a month, ordered by date,
// narrowed by the filter.
func (s *Store) GetTransactionsByMonth(ctx context.Context, month string, filter Filter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactionsByMonth(ctx, s.db, month, filter)
}

// GetTransactionsByMonth returns filtered transactions within the transaction.
func (t *Tx) GetTransactionsByMonth(ctx context.Context, month string, filter Filter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactionsByMonth(ctx, t.tx, month, filter)
}

func getTransactionsByMonth(ctx context.Context, q querier, month string, filter Filter) ([]model.Transaction, error) {
	if err := validateString(month, "month"); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + txColumns + ` FROM transactions WHERE month = ?`)
	args := []any{month}

	appendInClause := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		sb.WriteString(` AND ` + column + ` IN (?` + strings.Repeat(",?", len(values)-1) + `)`)
		for _, v := range values {
			args = append(args, v)
		}
	}
	appendInClause("property_code", filter.Properties)
	appendInClause("category", filter.Categories)
	appendInClause("subcategory", filter.Subcategories)

	if filter.NeedsReviewOnly {
		sb.WriteString(` AND needs_review = 1`)
	}
	if strings.TrimSpace(filter.Search) != "" {
		sb.WriteString(` AND memo LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.TrimSpace(filter.Search))+"%")
	}
	if filter.DateFrom != nil {
		sb.WriteString(` AND date >= ?`)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		sb.WriteString(` AND date <= ?`)
		args = append(args, *filter.DateTo)
	}
	sb.WriteString(` ORDER BY date, tx_id`)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransactionRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// CountMonthTransactions returns (total, in review) counts for a month within
// the transaction.
func (t *Tx) CountMonthTransactions(ctx context.Context, month string) (total, inReview int, err error) {
	if err := validateContext(ctx); err != nil {
		return 0, 0, err
	}
	err = t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(needs_review), 0) FROM transactions WHERE month = ?`,
		month).Scan(&total, &inReview)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return total, inReview, nil
}

// CountInReview returns the review queue size for a month.
func (s *Store) CountInReview(ctx context.Context, month string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE month = ? AND needs_review = 1`,
		month).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count review queue: %w", err)
	}
	return count, nil
}

// CountExisting returns how many of the given ids exist in the month, within
// the transaction. Used to reject batches naming unknown transactions.
func (t *Tx) CountExisting(ctx context.Context, month string, ids []string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query := `SELECT COUNT(*) FROM transactions WHERE month = ? AND tx_id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, month)
	for _, id := range ids {
		args = append(args, id)
	}

	var count int
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count existing transactions: %w", err)
	}
	return count, nil
}

// SetNeedsReview flips the review flag on the given transactions within the
// transaction and returns how many rows actually changed, so callers can
// report idempotent no-ops.
func (t *Tx) SetNeedsReview(ctx context.Context, month string, ids []string, needsReview bool) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	flag := boolToInt(needsReview)
	query := `UPDATE transactions SET needs_review = ?
		WHERE month = ? AND needs_review != ? AND tx_id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := []any{flag, month, flag}
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update review flags: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(changed), nil
}

// ClearReviewQueue clears the review flag on every queued transaction in the
// month and stamps their review time, within the transaction. Returns the
// number of transactions reconciled.
func (t *Tx) ClearReviewQueue(ctx context.Context, month string, reviewedAt time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := t.tx.ExecContext(ctx,
		`UPDATE transactions SET needs_review = 0, reviewed_at = ?
		 WHERE month = ? AND needs_review = 1`,
		reviewedAt, month)
	if err != nil {
		return 0, fmt.Errorf("failed to clear review queue: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(changed), nil
}

// UpdateLabels applies a manual correction within the transaction: the three
// label fields change, the strength becomes manual and the confidence is
// cleared. The review flag is left untouched.
func (t *Tx) UpdateLabels(ctx context.Context, id, propertyCode, category, subcategory string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx,
		`UPDATE transactions
		 SET property_code = ?, category = ?, subcategory = ?,
		     rule_strength = ?, confidence = NULL
		 WHERE tx_id = ?`,
		propertyCode, category, subcategory, string(model.StrengthManual), id)
	if err != nil {
		return fmt.Errorf("failed to update labels for %s: %w", id, err)
	}
	return nil
}

// scanTransactionRow scans one transactions row via the given Scan function.
func scanTransactionRow(scan func(...any) error) (*model.Transaction, error) {
	var txn model.Transaction
	var amount string
	var confidence sql.NullFloat64
	var strength string
	var needsReview int
	var reviewedAt sql.NullTime

	err := scan(&txn.ID, &txn.Month, &txn.Date, &txn.Account, &amount, &txn.Memo,
		&txn.PropertyCode, &txn.Category, &txn.Subcategory,
		&confidence, &strength, &needsReview, &reviewedAt)
	if err != nil {
		return nil, err
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q on %s: %w", amount, txn.ID, err)
	}
	txn.Amount = dec
	if confidence.Valid {
		c := confidence.Float64
		txn.Confidence = &c
	}
	txn.RuleStrength = model.RuleStrength(strength)
	txn.NeedsReview = needsReview != 0
	if reviewedAt.Valid {
		t := reviewedAt.Time
		txn.ReviewedAt = &t
	}
	return &txn, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// escapeLike escapes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
