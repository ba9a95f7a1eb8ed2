package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
	"github.com/Veraticus/the-receipts-must-flow/internal/suggest"
)

// How an imported line item got its category.
const (
	ResultDraft      = "draft"
	ResultRule       = "rule"
	ResultHistory    = "history"
	ResultUnassigned = "unassigned"
	ResultFailed     = "failed"
)

// ReceiptSaver persists a new receipt and fills in its ID.
type ReceiptSaver interface {
	SaveReceipt(ctx context.Context, receipt *model.Receipt) error
}

// Suggester scores every item of a stored receipt.
type Suggester interface {
	SuggestForReceipt(ctx context.Context, userID string, receipt *model.Receipt, rules []model.CategoryRule) []suggest.ItemSuggestions
}

// Assigner writes one assignment and reports whether it stuck.
type Assigner interface {
	UpsertAssignment(ctx context.Context, ref model.ItemRef, categoryID string, source model.AssignmentSource, confidence *float64) bool
}

// ItemOutcome records what happened to one imported line item.
type ItemOutcome struct {
	Description string
	CategoryID  string
	Result      string
	Source      model.AssignmentSource
	Index       int
	Confidence  float64
}

// ImportResult is the stored receipt with the per-item outcomes.
type ImportResult struct {
	Receipt  *model.Receipt
	Outcomes []ItemOutcome
}

// Count returns how many items ended with the given result.
func (r *ImportResult) Count(result string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result == result {
			n++
		}
	}
	return n
}

// Importer stores extraction drafts and applies first categories.
type Importer struct {
	receipts   ReceiptSaver
	suggester  Suggester
	assigner   Assigner
	metrics    *metrics.Recorder
	categories []model.Category
	thresholds policy.Thresholds
}

// NewImporter creates an importer. categories is the snapshot draft guesses
// are resolved against; recorder may be nil.
func NewImporter(receipts ReceiptSaver, suggester Suggester, assigner Assigner, categories []model.Category, thresholds policy.Thresholds, recorder *metrics.Recorder) *Importer {
	return &Importer{
		receipts:   receipts,
		suggester:  suggester,
		assigner:   assigner,
		metrics:    recorder,
		categories: categories,
		thresholds: thresholds,
	}
}

// Import saves the draft as a receipt of userID and categorizes its items.
// A confident draft guess naming a known category is kept as a model
// assignment; every other item is re-suggested and gets the top suggestion.
// Items without any suggestion stay unassigned for review.
func (imp *Importer) Import(ctx context.Context, userID, filename string, draft *Draft, rules []model.CategoryRule) (*ImportResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.ErrMissingUser
	}
	if draft == nil {
		return nil, fmt.Errorf("%w: nil draft", ErrInvalidDraft)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	receipt := draft.Receipt(userID, filename)
	if err := imp.receipts.SaveReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}

	result := &ImportResult{
		Receipt:  receipt,
		Outcomes: make([]ItemOutcome, len(receipt.Items)),
	}

	resuggest := false
	for i, item := range receipt.Items {
		result.Outcomes[i] = ItemOutcome{Index: i, Description: item.Description}
		if category, ok := imp.acceptDraft(item); ok {
			imp.apply(ctx, receipt.ID, &result.Outcomes[i], category.ID, model.SourceModel, item.Confidence, ResultDraft)
			continue
		}
		resuggest = true
	}

	if resuggest {
		suggestions := imp.suggester.SuggestForReceipt(ctx, userID, receipt, rules)
		for _, s := range suggestions {
			outcome := &result.Outcomes[s.Index]
			if outcome.Result != "" {
				continue
			}
			if len(s.Suggestions) == 0 {
				outcome.Result = ResultUnassigned
				continue
			}
			top := s.Suggestions[0]
			kind := ResultHistory
			if top.Origin == model.OriginRule {
				kind = ResultRule
			}
			imp.apply(ctx, receipt.ID, outcome, top.CategoryID, top.Origin.AssignmentSource(), top.Confidence, kind)
		}
	}

	for i := range result.Outcomes {
		if result.Outcomes[i].Result == "" {
			result.Outcomes[i].Result = ResultUnassigned
		}
		imp.metrics.ItemImported(result.Outcomes[i].Result)
	}

	slog.Info("Imported receipt",
		"receipt_id", receipt.ID,
		"store", receipt.StoreName,
		"items", len(receipt.Items),
		"from_draft", result.Count(ResultDraft),
		"from_rules", result.Count(ResultRule),
		"from_history", result.Count(ResultHistory),
		"unassigned", result.Count(ResultUnassigned),
		"failed", result.Count(ResultFailed))
	return result, nil
}

func (imp *Importer) acceptDraft(item model.LineItem) (model.Category, bool) {
	if item.Category == "" || item.Confidence < imp.thresholds.DraftResuggest {
		return model.Category{}, false
	}
	return ResolveCategory(imp.categories, item.Category)
}

func (imp *Importer) apply(ctx context.Context, receiptID string, outcome *ItemOutcome, categoryID string, source model.AssignmentSource, confidence float64, kind string) {
	ref := model.ItemRef{ReceiptID: receiptID, Index: outcome.Index}
	if !imp.assigner.UpsertAssignment(ctx, ref, categoryID, source, &confidence) {
		outcome.Result = ResultFailed
		return
	}
	outcome.CategoryID = categoryID
	outcome.Source = source
	outcome.Confidence = confidence
	outcome.Result = kind
}

// ResolveCategory finds the category a free-text guess names, by slug or
// display name, ignoring case. System categories win over user categories
// with the same slug or name.
func ResolveCategory(categories []model.Category, guess string) (model.Category, bool) {
	guess = strings.ToLower(strings.TrimSpace(guess))
	if guess == "" {
		return model.Category{}, false
	}

	var found *model.Category
	for i := range categories {
		c := &categories[i]
		if strings.ToLower(c.Slug) != guess && strings.ToLower(c.Name) != guess {
			continue
		}
		if c.IsSystem {
			return *c, true
		}
		if found == nil {
			found = c
		}
	}
	if found == nil {
		return model.Category{}, false
	}
	return *found, true
}
