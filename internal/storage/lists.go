package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/model"
)

// AddListValue appends a value to one of the three list domains. The registry
// is append-only; adding an existing value returns ErrDuplicate so callers can
// treat it as an idempotent no-op.
func (s *Store) AddListValue(ctx context.Context, domain model.ListDomain, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !model.ValidDomain(domain) {
		return common.NotFoundf("list domain %q", domain)
	}
	value = strings.TrimSpace(value)
	if err := validateString(value, "value"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO list_entries (domain, value) VALUES (?, ?)`,
		string(domain), value)
	if err != nil {
		return fmt.Errorf("failed to add list value: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 0 {
		return fmt.Errorf("%w: %s %q", common.ErrDuplicate, domain, value)
	}

	slog.Info("added list value", "domain", domain, "value", value)
	return nil
}

// HasListValue reports whether a value exists in a domain.
func (s *Store) HasListValue(ctx context.Context, domain model.ListDomain, value string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM list_entries WHERE domain = ? AND value = ?`,
		string(domain), value).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query list value: %w", err)
	}
	return count > 0, nil
}

// GetLists returns the full registry, each domain sorted.
func (s *Store) GetLists(ctx context.Context) (*model.Lists, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, value FROM list_entries ORDER BY domain, value`)
	if err != nil {
		return nil, fmt.Errorf("failed to query list entries: %w", err)
	}
	defer rows.Close()

	lists := &model.Lists{
		PropertyCodes: []string{},
		Categories:    []string{},
		Subcategories: []string{},
	}
	for rows.Next() {
		var domain, value string
		if err := rows.Scan(&domain, &value); err != nil {
			return nil, fmt.Errorf("failed to scan list entry: %w", err)
		}
		switch model.ListDomain(domain) {
		case model.DomainProperty:
			lists.PropertyCodes = append(lists.PropertyCodes, value)
		case model.DomainCategory:
			lists.Categories = append(lists.Categories, value)
		case model.DomainSubcategory:
			lists.Subcategories = append(lists.Subcategories, value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating list entries: %w", err)
	}
	return lists, nil
}
