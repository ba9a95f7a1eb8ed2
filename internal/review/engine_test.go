package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
)

type fakeSource struct {
	receiptErr  error
	assignErr   error
	receipts    []model.Receipt
	assignments []model.CategoryAssignment
	lastRange   model.DateRange
}

func (f *fakeSource) ListReceipts(_ context.Context, _ string, r model.DateRange) ([]model.Receipt, error) {
	f.lastRange = r
	return f.receipts, f.receiptErr
}

func (f *fakeSource) GetAssignmentsInRange(context.Context, string, model.DateRange) ([]model.CategoryAssignment, error) {
	return f.assignments, f.assignErr
}

func conf(f float64) *float64 { return &f }

func receipt(id string, totals ...float64) model.Receipt {
	r := model.Receipt{
		ID:        id,
		UserID:    "user-1",
		StoreName: "Store " + id,
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, total := range totals {
		r.Items = append(r.Items, model.LineItem{
			Index:       i,
			Description: id + " item",
			Total:       total,
		})
	}
	return r
}

func assigned(receiptID string, index int, categoryID string, source model.AssignmentSource, confidence *float64) model.CategoryAssignment {
	return model.CategoryAssignment{
		ReceiptID:     receiptID,
		LineItemIndex: index,
		CategoryID:    categoryID,
		Source:        source,
		Confidence:    confidence,
	}
}

var snapshot = []model.Category{
	{ID: "sys-groceries", Name: "Groceries", Slug: "groceries", Icon: model.IconCart},
	{ID: "sys-dining", Name: "Dining", Slug: "dining", Icon: model.IconUtensils},
	{ID: "sys-coffee", Name: "Coffee", Slug: "coffee", Icon: model.IconCoffee},
	{ID: "sys-other", Name: "Other", Slug: "other", Icon: model.IconQuestionMark},
}

func TestEngine_NeedsReview(t *testing.T) {
	e := NewEngine(&fakeSource{}, policy.Defaults(), nil)

	tests := []struct {
		assignment *model.CategoryAssignment
		name       string
		want       bool
	}{
		{name: "missing", assignment: nil, want: true},
		{name: "exactly at trigger", assignment: &model.CategoryAssignment{Source: model.SourceModel, Confidence: conf(0.75)}, want: false},
		{name: "just below trigger", assignment: &model.CategoryAssignment{Source: model.SourceModel, Confidence: conf(0.7499)}, want: true},
		{name: "rule match", assignment: &model.CategoryAssignment{Source: model.SourceRule, Confidence: conf(0.95)}, want: false},
		{name: "user without confidence", assignment: &model.CategoryAssignment{Source: model.SourceUser}, want: false},
		{name: "model without confidence", assignment: &model.CategoryAssignment{Source: model.SourceModel}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.NeedsReview(tt.assignment))
		})
	}
}

func TestEngine_BuildReviewQueue(t *testing.T) {
	source := &fakeSource{
		receipts: []model.Receipt{
			receipt("r1", 4.50, 12.00, 3.25),
			receipt("r2", 20.00, 8.00),
		},
		assignments: []model.CategoryAssignment{
			assigned("r1", 0, "sys-coffee", model.SourceUser, nil),
			assigned("r1", 1, "sys-dining", model.SourceModel, conf(0.75)),
			assigned("r1", 2, "sys-groceries", model.SourceModel, conf(0.7499)),
			assigned("r2", 1, "sys-other", model.SourceRule, conf(0.95)),
			// stale entry for an index the receipt does not have
			assigned("r2", 9, "sys-other", model.SourceModel, conf(0.1)),
		},
	}

	reg := prometheus.NewRegistry()
	e := NewEngine(source, policy.Defaults(), metrics.NewRecorder(reg))

	dateRange := model.DateRange{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	queue, err := e.BuildReviewQueue(context.Background(), "user-1", dateRange)
	require.NoError(t, err)
	assert.Equal(t, dateRange, source.lastRange)

	require.Len(t, queue, 2)

	assert.Equal(t, model.ItemRef{ReceiptID: "r1", Index: 2}, queue[0].Ref())
	assert.Equal(t, model.ReasonLowConfidence, queue[0].Reason)
	assert.Equal(t, "sys-groceries", queue[0].CategoryID)
	assert.InDelta(t, 0.7499, queue[0].Confidence, 1e-9)
	assert.InDelta(t, 3.25, queue[0].Total, 1e-9)

	assert.Equal(t, model.ItemRef{ReceiptID: "r2", Index: 0}, queue[1].Ref())
	assert.Equal(t, model.ReasonUncategorized, queue[1].Reason)
	assert.Empty(t, queue[1].CategoryID)
	assert.Equal(t, "Store r2", queue[1].StoreName)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "receipts_review_queue_items"))
}

func TestEngine_BuildReviewQueue_Empty(t *testing.T) {
	e := NewEngine(&fakeSource{}, policy.Defaults(), nil)

	queue, err := e.BuildReviewQueue(context.Background(), "user-1", model.DateRange{})
	require.NoError(t, err)
	assert.NotNil(t, queue)
	assert.Empty(t, queue)
}

func TestEngine_Errors(t *testing.T) {
	tests := []struct {
		source  *fakeSource
		wantErr error
		name    string
		userID  string
	}{
		{name: "receipts fail", source: &fakeSource{receiptErr: common.ErrDatabaseCorrupted}, userID: "user-1", wantErr: common.ErrDatabaseCorrupted},
		{name: "assignments fail", source: &fakeSource{assignErr: common.ErrDatabaseCorrupted}, userID: "user-1", wantErr: common.ErrDatabaseCorrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.source, policy.Defaults(), nil)

			_, err := e.BuildReviewQueue(context.Background(), tt.userID, model.DateRange{})
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			_, err = e.BuildCategoryBreakdown(context.Background(), tt.userID, model.DateRange{}, snapshot)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_MissingUser(t *testing.T) {
	source := &fakeSource{receiptErr: common.ErrDatabaseCorrupted}
	e := NewEngine(source, policy.Defaults(), nil)

	for _, userID := range []string{"", "  "} {
		queue, err := e.BuildReviewQueue(context.Background(), userID, model.DateRange{})
		require.NoError(t, err)
		assert.NotNil(t, queue)
		assert.Empty(t, queue)

		stats, err := e.BuildCategoryBreakdown(context.Background(), userID, model.DateRange{}, snapshot)
		require.NoError(t, err)
		require.Len(t, stats, len(snapshot))
		for i, s := range stats {
			assert.Equal(t, snapshot[i].ID, s.CategoryID)
			assert.Zero(t, s.TotalAmount)
			assert.Zero(t, s.ItemCount)
		}
	}
}

func TestEngine_BuildCategoryBreakdown(t *testing.T) {
	source := &fakeSource{
		receipts: []model.Receipt{
			receipt("r1", 10.00, 30.00, 5.00),
			receipt("r2", 20.00, 15.00),
		},
		assignments: []model.CategoryAssignment{
			assigned("r1", 0, "sys-groceries", model.SourceUser, nil),
			assigned("r1", 1, "sys-dining", model.SourceModel, conf(0.9)),
			assigned("r1", 2, "sys-groceries", model.SourceUser, nil),
			assigned("r2", 0, "sys-groceries", model.SourceRule, conf(0.95)),
			assigned("r2", 1, "sys-dining", model.SourceModel, conf(0.5)),
			assigned("r2", 7, "sys-coffee", model.SourceModel, conf(0.5)),
		},
	}
	e := NewEngine(source, policy.Defaults(), nil)

	stats, err := e.BuildCategoryBreakdown(context.Background(), "user-1", model.DateRange{}, snapshot)
	require.NoError(t, err)
	require.Len(t, stats, 4)

	// groceries 35, dining 45; coffee and other tie at zero and keep snapshot order.
	assert.Equal(t, "sys-dining", stats[0].CategoryID)
	assert.InDelta(t, 45.0, stats[0].TotalAmount, 1e-9)
	assert.Equal(t, 2, stats[0].ItemCount)
	assert.Equal(t, 2, stats[0].ReceiptCount)
	assert.InDelta(t, 22.5, stats[0].AveragePerItem, 1e-9)
	assert.InDelta(t, 56.25, stats[0].Percentage, 1e-9)

	assert.Equal(t, "sys-groceries", stats[1].CategoryID)
	assert.InDelta(t, 35.0, stats[1].TotalAmount, 1e-9)
	assert.Equal(t, 3, stats[1].ItemCount)
	assert.Equal(t, 2, stats[1].ReceiptCount)
	assert.InDelta(t, 43.75, stats[1].Percentage, 1e-9)
	assert.Equal(t, model.IconCart, stats[1].Icon)

	assert.Equal(t, "sys-coffee", stats[2].CategoryID)
	assert.Zero(t, stats[2].TotalAmount)
	assert.Zero(t, stats[2].ItemCount)
	assert.Zero(t, stats[2].AveragePerItem)
	assert.Equal(t, "sys-other", stats[3].CategoryID)
}

func TestBreakdown_UnknownCategoryAppended(t *testing.T) {
	receipts := []model.Receipt{receipt("r1", 7.00)}
	a := assigned("r1", 0, "user-pets", model.SourceUser, nil)
	a.CategoryName = "Pets"
	a.CategorySlug = "pets"
	a.CategoryIcon = model.IconPaw

	stats := Breakdown(receipts, []model.CategoryAssignment{a}, snapshot[:2])
	require.Len(t, stats, 3)
	assert.Equal(t, "user-pets", stats[0].CategoryID)
	assert.Equal(t, "Pets", stats[0].Name)
	assert.Equal(t, model.IconPaw, stats[0].Icon)
	assert.InDelta(t, 100.0, stats[0].Percentage, 1e-9)
}

func TestBreakdown_NoSpend(t *testing.T) {
	stats := Breakdown(nil, nil, snapshot)
	require.Len(t, stats, len(snapshot))
	for i, s := range stats {
		assert.Equal(t, snapshot[i].ID, s.CategoryID)
		assert.Zero(t, s.Percentage)
	}
}

func TestBreakdown_TotalsMatchGrandTotal(t *testing.T) {
	faker := gofakeit.New(42)

	for run := 0; run < 25; run++ {
		var receipts []model.Receipt
		var assignments []model.CategoryAssignment
		grand := 0.0

		receiptCount := faker.IntRange(1, 6)
		for r := 0; r < receiptCount; r++ {
			id := faker.UUID()
			n := faker.IntRange(1, 8)
			totals := make([]float64, n)
			for i := range totals {
				totals[i] = faker.Price(0.5, 250)
			}
			receipts = append(receipts, receipt(id, totals...))
			for i := range totals {
				if faker.Bool() {
					continue
				}
				category := snapshot[faker.IntRange(0, len(snapshot)-1)].ID
				assignments = append(assignments, assigned(id, i, category, model.SourceUser, nil))
				grand += totals[i]
			}
		}

		stats := Breakdown(receipts, assignments, snapshot)
		require.Len(t, stats, len(snapshot))

		sum, pct := 0.0, 0.0
		for i, s := range stats {
			sum += s.TotalAmount
			pct += s.Percentage
			if i > 0 {
				assert.GreaterOrEqual(t, stats[i-1].TotalAmount, s.TotalAmount)
			}
		}
		assert.InDelta(t, grand, sum, 1e-6)
		if grand > 0 {
			assert.InDelta(t, 100.0, pct, 1e-6)
		}
	}
}
