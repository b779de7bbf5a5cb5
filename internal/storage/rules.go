package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maffers001/property/internal/model"
)

// CreateRule inserts a classification rule and fills in its id.
func (s *Store) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (name, priority, memo_pattern, is_regex, account,
			amount_condition, amount_value, amount_min, amount_max,
			property_code, category, subcategory, strength, is_active,
			use_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, rule.Priority, rule.MemoPattern, boolToInt(rule.IsRegex),
		rule.Account, string(rule.AmountCondition),
		decimalPtrString(rule.AmountValue), decimalPtrString(rule.AmountMin),
		decimalPtrString(rule.AmountMax),
		rule.PropertyCode, rule.Category, rule.Subcategory,
		string(rule.Strength), boolToInt(rule.IsActive), rule.UseCount,
		rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = id

	slog.Info("created classification rule",
		"id", rule.ID,
		"name", rule.Name,
		"strength", rule.Strength)
	return nil
}

// GetActiveRules returns all active rules ordered by priority, then id, which
// is the first-match-wins evaluation order.
func (s *Store) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, priority, memo_pattern, is_regex, account,
		       amount_condition, amount_value, amount_min, amount_max,
		       property_code, category, subcategory, strength, is_active,
		       use_count, created_at
		FROM rules
		WHERE is_active = 1
		ORDER BY priority, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var rule model.Rule
		var isRegex, isActive int
		var condition, strength string
		var amountValue, amountMin, amountMax sql.NullString

		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Priority,
			&rule.MemoPattern, &isRegex, &rule.Account,
			&condition, &amountValue, &amountMin, &amountMax,
			&rule.PropertyCode, &rule.Category, &rule.Subcategory,
			&strength, &isActive, &rule.UseCount, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.IsRegex = isRegex != 0
		rule.IsActive = isActive != 0
		rule.AmountCondition = model.AmountCondition(condition)
		rule.Strength = model.RuleStrength(strength)
		if rule.AmountValue, err = nullDecimal(amountValue); err != nil {
			return nil, fmt.Errorf("rule %d amount_value: %w", rule.ID, err)
		}
		if rule.AmountMin, err = nullDecimal(amountMin); err != nil {
			return nil, fmt.Errorf("rule %d amount_min: %w", rule.ID, err)
		}
		if rule.AmountMax, err = nullDecimal(amountMax); err != nil {
			return nil, fmt.Errorf("rule %d amount_max: %w", rule.ID, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	slog.Debug("retrieved active rules", "count", len(rules))
	return rules, nil
}

// IncrementRuleUseCount bumps a rule's use counter.
func (s *Store) IncrementRuleUseCount(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE rules SET use_count = use_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment use count for rule %d: %w", id, err)
	}
	return nil
}

func decimalPtrString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
