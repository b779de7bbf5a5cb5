package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maffers001/property/internal/model"
)

// EnsureMonth creates the month ledger header in OPEN state if it does not
// exist yet. Creating an existing month is a no-op.
func (s *Store) EnsureMonth(ctx context.Context, month string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(month, "month"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO months (month, state) VALUES (?, ?)`,
		month, model.StateOpen)
	if err != nil {
		return fmt.Errorf("failed to ensure month %s: %w", month, err)
	}
	return nil
}

// GetMonth returns the ledger header for a month, or nil when the month is
// unknown.
func (s *Store) GetMonth(ctx context.Context, month string) (*model.MonthLedger, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getMonth(ctx, s.db, month)
}

// GetMonth returns the ledger header within the transaction.
func (t *Tx) GetMonth(ctx context.Context, month string) (*model.MonthLedger, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getMonth(ctx, t.tx, month)
}

func getMonth(ctx context.Context, q querier, month string) (*model.MonthLedger, error) {
	if err := validateString(month, "month"); err != nil {
		return nil, err
	}

	query := `
		SELECT m.month, m.state, m.artifact_path, m.finalized_at,
		       (SELECT COUNT(*) FROM transactions t WHERE t.month = m.month)
		FROM months m
		WHERE m.month = ?`

	var ledger model.MonthLedger
	var finalizedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, month).Scan(
		&ledger.Month, &ledger.State, &ledger.ArtifactPath, &finalizedAt,
		&ledger.TransactionCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil // month not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query month: %w", err)
	}
	if finalizedAt.Valid {
		ledger.FinalizedAt = &finalizedAt.Time
	}
	return &ledger, nil
}

// ListMonths returns all month ledger headers, newest first.
func (s *Store) ListMonths(ctx context.Context) ([]model.MonthLedger, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT m.month, m.state, m.artifact_path, m.finalized_at,
		       (SELECT COUNT(*) FROM transactions t WHERE t.month = m.month)
		FROM months m
		ORDER BY m.month DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	var months []model.MonthLedger
	for rows.Next() {
		var ledger model.MonthLedger
		var finalizedAt sql.NullTime
		if err := rows.Scan(&ledger.Month, &ledger.State, &ledger.ArtifactPath,
			&finalizedAt, &ledger.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		if finalizedAt.Valid {
			ledger.FinalizedAt = &finalizedAt.Time
		}
		months = append(months, ledger)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating months: %w", err)
	}

	slog.Debug("retrieved months", "count", len(months))
	return months, nil
}

// AdvanceMonthState moves the ledger to the given state within the
// transaction. The state machine is monotonic; callers check legality first.
func (t *Tx) AdvanceMonthState(ctx context.Context, month string, state model.LedgerState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE months SET state = ? WHERE month = ?`, state, month)
	if err != nil {
		return fmt.Errorf("failed to advance month %s to %s: %w", month, state, err)
	}
	return nil
}

// FinalizeMonth records the FINALIZED state and the artifact path within the
// transaction.
func (t *Tx) FinalizeMonth(ctx context.Context, month, artifactPath string, finalizedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE months SET state = ?, artifact_path = ?, finalized_at = ? WHERE month = ?`,
		model.StateFinalized, artifactPath, finalizedAt, month)
	if err != nil {
		return fmt.Errorf("failed to finalize month %s: %w", month, err)
	}
	return nil
}
