package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestSQLiteStorage_UpsertAssignment_LastWriteWins(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("Cafe", 2, "Large Latte", "Blueberry Muffin")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	first := &model.CategoryAssignment{
		ReceiptID:     receipt.ID,
		LineItemIndex: 0,
		CategoryID:    "sys-dining",
		Source:        model.SourceModel,
		Confidence:    ptr(0.72),
	}
	require.NoError(t, store.UpsertAssignment(ctx, first))
	originalID := first.ID
	require.NotEmpty(t, originalID)

	second := &model.CategoryAssignment{
		ReceiptID:     receipt.ID,
		LineItemIndex: 0,
		CategoryID:    "sys-coffee",
		Source:        model.SourceRule,
		Confidence:    ptr(0.95),
	}
	require.NoError(t, store.UpsertAssignment(ctx, second))
	assert.Equal(t, originalID, second.ID)

	got, err := store.GetAssignmentsForReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sys-coffee", got[0].CategoryID)
	assert.Equal(t, model.SourceRule, got[0].Source)
	require.NotNil(t, got[0].Confidence)
	assert.InDelta(t, 0.95, *got[0].Confidence, 1e-9)
	assert.Equal(t, "Coffee", got[0].CategoryName)
	assert.Equal(t, "coffee", got[0].CategorySlug)
}

func TestSQLiteStorage_UpsertAssignment_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("Market", 4, "Apples")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	for i := 0; i < 2; i++ {
		require.NoError(t, store.UpsertAssignment(ctx, &model.CategoryAssignment{
			ReceiptID:     receipt.ID,
			LineItemIndex: 0,
			CategoryID:    "sys-groceries",
			Source:        model.SourceModel,
			Confidence:    ptr(0.8),
		}))
	}

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM category_assignments WHERE receipt_id = ? AND line_index = 0`,
		receipt.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteStorage_UpsertAssignment_NullConfidence(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("Market", 4, "Apples")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	require.NoError(t, store.UpsertAssignment(ctx, &model.CategoryAssignment{
		ReceiptID:  receipt.ID,
		CategoryID: "sys-groceries",
		Source:     model.SourceModel,
	}))

	got, err := store.GetAssignmentsForReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Confidence)
	assert.Zero(t, got[0].EffectiveConfidence())
}

func TestSQLiteStorage_UpsertAssignment_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		assignment *model.CategoryAssignment
		wantErr    error
		name       string
	}{
		{
			name:    "nil",
			wantErr: ErrNilParameter,
		},
		{
			name:       "missing receipt",
			assignment: &model.CategoryAssignment{CategoryID: "sys-other", Source: model.SourceModel},
			wantErr:    ErrInvalidAssignment,
		},
		{
			name:       "negative index",
			assignment: &model.CategoryAssignment{ReceiptID: "r", CategoryID: "sys-other", LineItemIndex: -1, Source: model.SourceModel},
			wantErr:    ErrInvalidAssignment,
		},
		{
			name:       "unknown source",
			assignment: &model.CategoryAssignment{ReceiptID: "r", CategoryID: "sys-other", Source: "robot"},
			wantErr:    ErrInvalidSource,
		},
		{
			name:       "confidence above one",
			assignment: &model.CategoryAssignment{ReceiptID: "r", CategoryID: "sys-other", Source: model.SourceModel, Confidence: ptr(1.2)},
			wantErr:    ErrInvalidAssignment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpsertAssignment(ctx, tt.assignment)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSQLiteStorage_UpsertAssignment_RequiresLineItem(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("Market", 4, "Apples", "Soap")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	tests := []struct {
		name       string
		receiptID  string
		categoryID string
		index      int
	}{
		{name: "index past the last item", receiptID: receipt.ID, index: 99, categoryID: "sys-other"},
		{name: "index equal to item count", receiptID: receipt.ID, index: 2, categoryID: "sys-other"},
		{name: "unknown receipt", receiptID: "no-such-receipt", index: 0, categoryID: "sys-other"},
		{name: "unknown category", receiptID: receipt.ID, index: 0, categoryID: "sys-nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpsertAssignment(ctx, &model.CategoryAssignment{
				ReceiptID:     tt.receiptID,
				LineItemIndex: tt.index,
				CategoryID:    tt.categoryID,
				Source:        model.SourceUser,
			})
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}

	got, err := store.GetAssignmentsForReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.UpsertAssignment(ctx, &model.CategoryAssignment{
		ReceiptID:     receipt.ID,
		LineItemIndex: 1,
		CategoryID:    "sys-household",
		Source:        model.SourceUser,
	}))
}

func TestSQLiteStorage_GetAssignmentsForReceipt_OrderedByIndex(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("Market", 4, "Apples", "Soap", "Cat Food")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	for _, a := range []struct {
		category string
		index    int
	}{{"sys-pets", 2}, {"sys-groceries", 0}, {"sys-household", 1}} {
		require.NoError(t, store.UpsertAssignment(ctx, &model.CategoryAssignment{
			ReceiptID:     receipt.ID,
			LineItemIndex: a.index,
			CategoryID:    a.category,
			Source:        model.SourceUser,
		}))
	}

	got, err := store.GetAssignmentsForReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, a := range got {
		assert.Equal(t, i, a.LineItemIndex)
	}
	assert.Equal(t, model.IconPaw, got[2].CategoryIcon)
}

func TestSQLiteStorage_GetAssignmentsInRange(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	early := testReceipt("Store", 2, "Early Item")
	late := testReceipt("Store", 25, "Late Item")
	require.NoError(t, store.SaveReceipt(ctx, early))
	require.NoError(t, store.SaveReceipt(ctx, late))

	for _, r := range []*model.Receipt{early, late} {
		require.NoError(t, store.UpsertAssignment(ctx, &model.CategoryAssignment{
			ReceiptID:  r.ID,
			CategoryID: "sys-other",
			Source:     model.SourceUser,
		}))
	}

	all, err := store.GetAssignmentsInRange(ctx, testUser, model.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ReceiptID)

	bounded, err := store.GetAssignmentsInRange(ctx, testUser, model.DateRange{Start: late.Date})
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.Equal(t, late.ID, bounded[0].ReceiptID)

	none, err := store.GetAssignmentsInRange(ctx, "someone-else", model.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStorage_GetUserHistory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	receipt := testReceipt("Cafe", 9, "Starbucks Coffee", "Bagel", "Starbucks Coffee")
	require.NoError(t, store.SaveReceipt(ctx, receipt))

	write := func(index int, category string, source model.AssignmentSource) {
		t.Helper()
		require.NoError(t, store.UpsertAssignment(ctx, &model.CategoryAssignment{
			ReceiptID:     receipt.ID,
			LineItemIndex: index,
			CategoryID:    category,
			Source:        source,
			Confidence:    ptr(0.9),
		}))
	}
	write(0, "sys-coffee", model.SourceUser)
	write(1, "sys-dining", model.SourceModel)
	write(2, "sys-coffee", model.SourceUser)
	// Overwriting keeps the row's original position.
	write(0, "sys-coffee", model.SourceUser)

	history, err := store.GetUserHistory(ctx, testUser, model.SourceUser, 500)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, 2, history[0].Assignment.LineItemIndex)
	assert.True(t, history[0].Found)
	assert.Equal(t, "Starbucks Coffee", history[0].Description)
	assert.Equal(t, 0, history[1].Assignment.LineItemIndex)
	assert.True(t, history[1].Found)

	limited, err := store.GetUserHistory(ctx, testUser, model.SourceUser, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = store.GetUserHistory(ctx, testUser, model.SourceUser, 0)
	assert.ErrorIs(t, err, ErrInvalidHistoryLimit)

	_, err = store.GetUserHistory(ctx, testUser, "bogus", 10)
	assert.ErrorIs(t, err, ErrInvalidSource)
}
