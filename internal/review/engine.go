// Package review finds line items that need a human to confirm their category
// and rolls categorized spending up per category.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
)

// Source supplies the receipts and assignments of a user within a period.
type Source interface {
	ListReceipts(ctx context.Context, userID string, dateRange model.DateRange) ([]model.Receipt, error)
	GetAssignmentsInRange(ctx context.Context, userID string, dateRange model.DateRange) ([]model.CategoryAssignment, error)
}

// Engine builds the review queue and the category breakdown.
type Engine struct {
	source     Source
	metrics    *metrics.Recorder
	thresholds policy.Thresholds
}

// NewEngine creates a review engine. recorder may be nil.
func NewEngine(source Source, thresholds policy.Thresholds, recorder *metrics.Recorder) *Engine {
	return &Engine{
		source:     source,
		metrics:    recorder,
		thresholds: thresholds,
	}
}

// NeedsReview reports whether an assignment is too uncertain to stand without
// confirmation. A nil assignment always needs review.
func (e *Engine) NeedsReview(assignment *model.CategoryAssignment) bool {
	if assignment == nil {
		return true
	}
	return assignment.EffectiveConfidence() < e.thresholds.ReviewTrigger
}

// BuildReviewQueue lists every line item in range that has no assignment or
// whose assignment is below the review trigger. Items come in receipt order,
// then line order. Without a user the queue is empty.
func (e *Engine) BuildReviewQueue(ctx context.Context, userID string, dateRange model.DateRange) ([]model.ReviewItem, error) {
	if strings.TrimSpace(userID) == "" {
		slog.Debug("review queue requested without user")
		return []model.ReviewItem{}, nil
	}

	receipts, assignments, err := e.load(ctx, userID, dateRange)
	if err != nil {
		return nil, err
	}

	queue := e.Queue(receipts, assignments)

	counts := map[model.ReviewReason]int{
		model.ReasonUncategorized: 0,
		model.ReasonLowConfidence: 0,
	}
	for _, item := range queue {
		counts[item.Reason]++
	}
	for reason, n := range counts {
		e.metrics.ReviewQueueSize(string(reason), n)
	}

	slog.Info("Built review queue",
		"user_id", userID,
		"receipts", len(receipts),
		"uncategorized", counts[model.ReasonUncategorized],
		"low_confidence", counts[model.ReasonLowConfidence])
	return queue, nil
}

// Queue classifies the items of receipts against assignments without touching
// storage. Assignments for receipts not in the list are ignored.
func (e *Engine) Queue(receipts []model.Receipt, assignments []model.CategoryAssignment) []model.ReviewItem {
	byRef := make(map[model.ItemRef]*model.CategoryAssignment, len(assignments))
	for i := range assignments {
		byRef[assignments[i].Ref()] = &assignments[i]
	}

	queue := []model.ReviewItem{}
	for _, receipt := range receipts {
		for i, item := range receipt.Items {
			entry := model.ReviewItem{
				Date:          receipt.Date,
				ReceiptID:     receipt.ID,
				StoreName:     receipt.StoreName,
				Description:   item.Description,
				LineItemIndex: i,
				Total:         item.Total,
			}

			assignment, ok := byRef[model.ItemRef{ReceiptID: receipt.ID, Index: i}]
			switch {
			case !ok:
				entry.Reason = model.ReasonUncategorized
			case e.NeedsReview(assignment):
				entry.Reason = model.ReasonLowConfidence
				entry.CategoryID = assignment.CategoryID
				entry.Source = assignment.Source
				entry.Confidence = assignment.EffectiveConfidence()
			default:
				continue
			}
			queue = append(queue, entry)
		}
	}
	return queue
}

// BuildCategoryBreakdown rolls categorized spending in range up per category.
// Every category of the snapshot appears, zero-filled when unused; categories
// referenced by assignments but missing from the snapshot are appended.
// Results are sorted by total amount, largest first, keeping snapshot order
// for ties. Without a user every category is zero.
func (e *Engine) BuildCategoryBreakdown(ctx context.Context, userID string, dateRange model.DateRange, categories []model.Category) ([]model.CategoryStats, error) {
	if strings.TrimSpace(userID) == "" {
		slog.Debug("category breakdown requested without user")
		return Breakdown(nil, nil, categories), nil
	}

	receipts, assignments, err := e.load(ctx, userID, dateRange)
	if err != nil {
		return nil, err
	}
	return Breakdown(receipts, assignments, categories), nil
}

type tally struct {
	receipts map[string]struct{}
	total    decimal.Decimal
	stats    model.CategoryStats
}

// Breakdown is the storage-free core of BuildCategoryBreakdown. Assignments
// whose line index does not resolve to an item of a listed receipt are skipped.
func Breakdown(receipts []model.Receipt, assignments []model.CategoryAssignment, categories []model.Category) []model.CategoryStats {
	receiptByID := make(map[string]*model.Receipt, len(receipts))
	for i := range receipts {
		receiptByID[receipts[i].ID] = &receipts[i]
	}

	order := make([]*tally, 0, len(categories))
	byCategory := make(map[string]*tally, len(categories))
	add := func(stats model.CategoryStats) *tally {
		t := &tally{stats: stats, receipts: map[string]struct{}{}}
		order = append(order, t)
		byCategory[stats.CategoryID] = t
		return t
	}
	for _, c := range categories {
		if _, dup := byCategory[c.ID]; dup {
			continue
		}
		add(model.CategoryStats{CategoryID: c.ID, Name: c.Name, Slug: c.Slug, Icon: c.Icon})
	}

	grand := decimal.Zero
	skipped := 0
	for _, a := range assignments {
		receipt, ok := receiptByID[a.ReceiptID]
		if !ok {
			skipped++
			continue
		}
		item, ok := receipt.Item(a.LineItemIndex)
		if !ok {
			skipped++
			continue
		}

		t, ok := byCategory[a.CategoryID]
		if !ok {
			t = add(model.CategoryStats{
				CategoryID: a.CategoryID,
				Name:       a.CategoryName,
				Slug:       a.CategorySlug,
				Icon:       a.CategoryIcon,
			})
		}

		amount := decimal.NewFromFloat(item.Total)
		t.total = t.total.Add(amount)
		t.stats.ItemCount++
		t.receipts[a.ReceiptID] = struct{}{}
		grand = grand.Add(amount)
	}
	if skipped > 0 {
		slog.Debug("skipped assignments that do not resolve to a line item", "count", skipped)
	}

	hundred := decimal.NewFromInt(100)
	stats := make([]model.CategoryStats, len(order))
	for i, t := range order {
		s := t.stats
		s.TotalAmount = t.total.InexactFloat64()
		s.ReceiptCount = len(t.receipts)
		if s.ItemCount > 0 {
			s.AveragePerItem = t.total.Div(decimal.NewFromInt(int64(s.ItemCount))).InexactFloat64()
		}
		if !grand.IsZero() {
			s.Percentage = t.total.Mul(hundred).Div(grand).InexactFloat64()
		}
		stats[i] = s
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalAmount > stats[j].TotalAmount
	})
	return stats
}

func (e *Engine) load(ctx context.Context, userID string, dateRange model.DateRange) ([]model.Receipt, []model.CategoryAssignment, error) {
	receipts, err := e.source.ListReceipts(ctx, userID, dateRange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	assignments, err := e.source.GetAssignmentsInRange(ctx, userID, dateRange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	return receipts, assignments, nil
}
