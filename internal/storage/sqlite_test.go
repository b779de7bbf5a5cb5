package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/model"
)

// Helper function to create a migrated test store.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return store
}

// Helper function to create test transactions in a month.
func createTestTransactions(month string, count int) []model.Transaction {
	base, _ := model.ParseMonth(month)
	txns := make([]model.Transaction, count)

	for i := 0; i < count; i++ {
		txns[i] = model.Transaction{
			ID:           month + "-txn-" + string(rune('a'+i)),
			Month:        month,
			Date:         base.AddDate(0, 0, i),
			Account:      "main",
			Amount:       decimal.NewFromInt(int64(i+1) * 10),
			Memo:         "Test payment " + string(rune('A'+i)),
			Category:     "Groceries",
			RuleStrength: model.StrengthExact,
		}
	}
	return txns
}

func TestStore_Migrate(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Schema version = %d, want %d", version, ExpectedSchemaVersion)
	}

	// Migrate is idempotent.
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("Second migrate failed: %v", err)
	}
}

func TestStore_EnsureMonth(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.EnsureMonth(ctx, "2024-03"); err != nil {
		t.Fatalf("Failed to ensure month: %v", err)
	}

	ledger, err := store.GetMonth(ctx, "2024-03")
	if err != nil {
		t.Fatalf("Failed to get month: %v", err)
	}
	if ledger == nil {
		t.Fatal("Expected month to exist")
	}
	if ledger.State != model.StateOpen {
		t.Errorf("State = %s, want %s", ledger.State, model.StateOpen)
	}

	// Re-ensuring must not reset anything.
	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin tx: %v", err)
	}
	if err := tx.AdvanceMonthState(ctx, "2024-03", model.StateSubmitted); err != nil {
		t.Fatalf("Failed to advance state: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	if err := store.EnsureMonth(ctx, "2024-03"); err != nil {
		t.Fatalf("Failed to re-ensure month: %v", err)
	}

	ledger, err = store.GetMonth(ctx, "2024-03")
	if err != nil {
		t.Fatalf("Failed to get month: %v", err)
	}
	if ledger.State != model.StateSubmitted {
		t.Errorf("State after re-ensure = %s, want %s", ledger.State, model.StateSubmitted)
	}
}

func TestStore_GetMonth_Unknown(t *testing.T) {
	store := createTestStore(t)

	ledger, err := store.GetMonth(context.Background(), "1999-01")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ledger != nil {
		t.Errorf("Expected nil for unknown month, got %+v", ledger)
	}
}

func TestStore_ListMonths_NewestFirst(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, month := range []string{"2024-01", "2024-03", "2023-12"} {
		if err := store.EnsureMonth(ctx, month); err != nil {
			t.Fatalf("Failed to ensure month %s: %v", month, err)
		}
	}

	months, err := store.ListMonths(ctx)
	if err != nil {
		t.Fatalf("Failed to list months: %v", err)
	}
	want := []string{"2024-03", "2024-01", "2023-12"}
	if len(months) != len(want) {
		t.Fatalf("Got %d months, want %d", len(months), len(want))
	}
	for i, ledger := range months {
		if ledger.Month != want[i] {
			t.Errorf("months[%d] = %s, want %s", i, ledger.Month, want[i])
		}
	}
}

func TestTx_FinalizeMonth(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.EnsureMonth(ctx, "2024-03"); err != nil {
		t.Fatalf("Failed to ensure month: %v", err)
	}

	finalizedAt := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin tx: %v", err)
	}
	if err := tx.FinalizeMonth(ctx, "2024-03", "/exports/2024-03_final.csv", finalizedAt); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	ledger, err := store.GetMonth(ctx, "2024-03")
	if err != nil {
		t.Fatalf("Failed to get month: %v", err)
	}
	if ledger.State != model.StateFinalized {
		t.Errorf("State = %s, want %s", ledger.State, model.StateFinalized)
	}
	if ledger.ArtifactPath != "/exports/2024-03_final.csv" {
		t.Errorf("ArtifactPath = %s", ledger.ArtifactPath)
	}
	if !ledger.Locked() {
		t.Error("Finalized ledger should be locked")
	}
	if ledger.FinalizedAt == nil || !ledger.FinalizedAt.Equal(finalizedAt) {
		t.Errorf("FinalizedAt = %v, want %v", ledger.FinalizedAt, finalizedAt)
	}
}

func TestStore_Lists(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.AddListValue(ctx, model.DomainCategory, "Groceries"); err != nil {
		t.Fatalf("Failed to add value: %v", err)
	}
	if err := store.AddListValue(ctx, model.DomainProperty, "FLAT-2"); err != nil {
		t.Fatalf("Failed to add value: %v", err)
	}

	// Duplicate add reports ErrDuplicate.
	err := store.AddListValue(ctx, model.DomainCategory, "Groceries")
	if !errors.Is(err, common.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	// Unknown domain is a not-found error.
	err = store.AddListValue(ctx, model.ListDomain("vendor"), "x")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown domain, got %v", err)
	}

	ok, err := store.HasListValue(ctx, model.DomainCategory, "Groceries")
	if err != nil || !ok {
		t.Errorf("HasListValue = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = store.HasListValue(ctx, model.DomainCategory, "Unknown")
	if err != nil || ok {
		t.Errorf("HasListValue for absent value = (%v, %v), want (false, nil)", ok, err)
	}

	lists, err := store.GetLists(ctx)
	if err != nil {
		t.Fatalf("Failed to get lists: %v", err)
	}
	if len(lists.Categories) != 1 || lists.Categories[0] != "Groceries" {
		t.Errorf("Categories = %v", lists.Categories)
	}
	if len(lists.PropertyCodes) != 1 || lists.PropertyCodes[0] != "FLAT-2" {
		t.Errorf("PropertyCodes = %v", lists.PropertyCodes)
	}
	if lists.Subcategories == nil || len(lists.Subcategories) != 0 {
		t.Errorf("Subcategories should be empty, not nil: %v", lists.Subcategories)
	}
}
