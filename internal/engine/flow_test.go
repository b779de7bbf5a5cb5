package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/storage"
)

// Walks one month through the whole review workflow: ingest with mixed rule
// strengths, bulk queue addition, a correction, explicit dequeue, submit and
// finalize.
func TestEngine_MonthReviewFlow(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	seedRule(t, store, model.Rule{
		Name:        "groceries",
		Priority:    10,
		MemoPattern: "TESCO",
		Category:    "Groceries",
		Strength:    model.StrengthExact,
	})
	seedRule(t, store, model.Rule{
		Name:        "repairs",
		Priority:    20,
		MemoPattern: "PLUMBER",
		Category:    model.CategoryPropertyExpense,
		Strength:    model.StrengthExact,
	})
	seedRule(t, store, model.Rule{
		Name:     "misc sweep",
		Priority: 500,
		Category: "Misc",
		Strength: model.StrengthCatchAll,
	})

	_, err := e.Ingest(ctx, caller, "2024-03", []model.IncomingTransaction{
		incoming(1, "main", "ODD PAYMENT", "-15.00"),
		incoming(2, "main", "TESCO STORES", "-42.00"),
		incoming(3, "main", "PLUMBER CALLOUT", "-80.00"),
	})
	require.NoError(t, err)

	txns := draft(t, e, "2024-03")
	odd := byMemo(t, txns, "ODD PAYMENT")
	groceries := byMemo(t, txns, "TESCO STORES")
	repair := byMemo(t, txns, "PLUMBER CALLOUT")

	// Low-trust catch-all match queues; the confident grocery match does not;
	// the expense queues because it names no property.
	assert.True(t, odd.NeedsReview)
	assert.False(t, groceries.NeedsReview)
	assert.True(t, repair.NeedsReview)

	// Dequeue the expense, then sweep it back in by predicate.
	_, err = e.RemoveFromQueue(ctx, caller, "2024-03", []string{repair.ID})
	require.NoError(t, err)

	added, err := e.AddToQueueByRule(ctx, caller, "2024-03", QueuePredicate{
		Category:      model.CategoryPropertyExpense,
		PropertyEmpty: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	queue, err := e.ReviewQueue(ctx, "2024-03", storage.Filter{})
	require.NoError(t, err)
	assert.Len(t, queue, 2)

	// Fix the expense and take it back out of the queue.
	_, err = e.AddListValue(ctx, caller, model.DomainProperty, "FLAT-2")
	require.NoError(t, err)
	require.NoError(t, e.Correct(ctx, caller, repair.ID, "FLAT-2", model.CategoryPropertyExpense, ""))
	removed, err := e.RemoveFromQueue(ctx, caller, "2024-03", []string{repair.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	queue, err = e.ReviewQueue(ctx, "2024-03", storage.Filter{})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, odd.ID, queue[0].ID)

	// Submit clears the remaining queue and stamps its rows.
	applied, err := e.Submit(ctx, caller, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	ledger, err := store.GetMonth(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, model.StateSubmitted, ledger.State)

	txns = draft(t, e, "2024-03")
	stamped := byMemo(t, txns, "ODD PAYMENT")
	require.NotNil(t, stamped.ReviewedAt)
	assert.True(t, stamped.ReviewedAt.Equal(testClock))
	assert.Nil(t, byMemo(t, txns, "TESCO STORES").ReviewedAt, "never-queued rows get no stamp")

	// Finalize locks the month for good.
	_, err = e.Finalize(ctx, caller, "2024-03")
	require.NoError(t, err)

	err = e.Correct(ctx, caller, groceries.ID, "", "Groceries", "")
	assert.ErrorIs(t, err, common.ErrLockedMonth)
}
