package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-receipts-must-flow/internal/history"
	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/pattern"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
)

type fakeSource struct {
	err     error
	history []model.HistoricalAssignment
	calls   atomic.Int32
}

func (f *fakeSource) GetUserHistory(context.Context, string, model.AssignmentSource, int) ([]model.HistoricalAssignment, error) {
	f.calls.Add(1)
	return f.history, f.err
}

type fakeRuleWriter struct {
	err     error
	created []*model.CategoryRule
}

func (f *fakeRuleWriter) CreateRule(_ context.Context, rule *model.CategoryRule) error {
	if f.err != nil {
		return f.err
	}
	rule.ID = fmt.Sprintf("rule-%d", len(f.created)+1)
	f.created = append(f.created, rule)
	return nil
}

var testCategories = []model.Category{
	{ID: "sys-coffee", Slug: "coffee", Name: "Coffee"},
	{ID: "sys-dining", Slug: "dining", Name: "Dining"},
	{ID: "sys-groceries", Slug: "groceries", Name: "Groceries"},
	{ID: "sys-other", Slug: "other", Name: "Other"},
}

func userAssignment(description, categoryID string) model.HistoricalAssignment {
	return model.HistoricalAssignment{
		Assignment: model.CategoryAssignment{
			CategoryID: categoryID,
			Source:     model.SourceUser,
		},
		Description: description,
		Found:       true,
	}
}

func rule(id, pattern, categoryID string, matchType model.MatchType) model.CategoryRule {
	return model.CategoryRule{
		ID:         id,
		UserID:     "user-1",
		Pattern:    pattern,
		CategoryID: categoryID,
		MatchType:  matchType,
		Enabled:    true,
		CreatedAt:  time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestAggregator(src *fakeSource, writer *fakeRuleWriter) *Aggregator {
	engine := history.NewEngine(src, policy.Defaults())
	return NewAggregator(engine, writer, testCategories, metrics.NewRecorder(prometheus.NewRegistry()), DefaultConfig())
}

func TestAggregator_GetSuggestionsForItem(t *testing.T) {
	coffeeHistory := []model.HistoricalAssignment{
		userAssignment("Starbucks Coffee", "sys-coffee"),
		userAssignment("Starbucks Coffee", "sys-coffee"),
	}

	tests := []struct {
		name           string
		description    string
		rules          []model.CategoryRule
		history        []model.HistoricalAssignment
		wantCategories []string
		wantOrigin     model.SuggestionOrigin
		wantHistory    bool
	}{
		{
			name:        "blank description",
			description: "   ",
			rules:       []model.CategoryRule{rule("r1", "coffee", "sys-coffee", model.MatchContains)},
			history:     coffeeHistory,
		},
		{
			name:           "rule wins over history",
			description:    "Starbucks Latte",
			rules:          []model.CategoryRule{rule("r1", "starbucks", "sys-dining", model.MatchContains)},
			history:        coffeeHistory,
			wantCategories: []string{"sys-dining"},
			wantOrigin:     model.OriginRule,
		},
		{
			name:        "rule matches capped at three",
			description: "Starbucks Latte Grande",
			rules: []model.CategoryRule{
				rule("r1", "starbucks", "sys-coffee", model.MatchContains),
				rule("r2", "latte", "sys-dining", model.MatchContains),
				rule("r3", "grande", "sys-other", model.MatchKeyword),
				rule("r4", "starbucks latte", "sys-groceries", model.MatchContains),
			},
			wantCategories: []string{"sys-coffee", "sys-dining", "sys-other"},
			wantOrigin:     model.OriginRule,
		},
		{
			name:           "history when no rule matches",
			description:    "Starbucks Latte",
			rules:          []model.CategoryRule{rule("r1", "walmart", "sys-groceries", model.MatchContains)},
			history:        coffeeHistory,
			wantCategories: []string{"sys-coffee"},
			wantOrigin:     model.OriginHistory,
			wantHistory:    true,
		},
		{
			name:        "disabled rule falls through to history",
			description: "Starbucks Latte",
			rules: func() []model.CategoryRule {
				r := rule("r1", "starbucks", "sys-dining", model.MatchContains)
				r.Enabled = false
				return []model.CategoryRule{r}
			}(),
			history:        coffeeHistory,
			wantCategories: []string{"sys-coffee"},
			wantOrigin:     model.OriginHistory,
			wantHistory:    true,
		},
		{
			name:        "nothing known",
			description: "Mystery Item",
			wantHistory: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{history: tt.history}
			agg := newTestAggregator(src, &fakeRuleWriter{})

			got := agg.GetSuggestionsForItem(context.Background(), "user-1", tt.description, tt.rules)
			require.NotNil(t, got)

			ids := make([]string, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.CategoryID)
				assert.Equal(t, tt.wantOrigin, s.Origin)
			}
			if len(tt.wantCategories) == 0 {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantCategories, ids)
			}

			if tt.wantHistory {
				assert.EqualValues(t, 1, src.calls.Load())
			} else {
				assert.Zero(t, src.calls.Load())
			}
		})
	}
}

func TestAggregator_RuleSuggestionShape(t *testing.T) {
	agg := newTestAggregator(&fakeSource{}, &fakeRuleWriter{})
	r := rule("r1", "starbucks", "sys-coffee", model.MatchContains)

	got := agg.GetSuggestionsForItem(context.Background(), "user-1", "STARBUCKS #1234", []model.CategoryRule{r})
	require.Len(t, got, 1)

	assert.InDelta(t, policy.DefaultRuleConfidence, got[0].Confidence, 1e-9)
	assert.Equal(t, 1, got[0].UsageCount)
	assert.Equal(t, r.CreatedAt, got[0].LastUsed)
	assert.Equal(t, "Coffee", got[0].CategoryName)
	assert.Equal(t, "r1", got[0].RuleID)
}

func TestAggregator_HistoryFailureFailsOpen(t *testing.T) {
	src := &fakeSource{err: errors.New("database is locked")}
	agg := newTestAggregator(src, &fakeRuleWriter{})

	got := agg.GetSuggestionsForItem(context.Background(), "user-1", "Starbucks Latte", nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregator_SuggestForReceipt(t *testing.T) {
	src := &fakeSource{history: []model.HistoricalAssignment{
		userAssignment("Whole Milk", "sys-groceries"),
		userAssignment("Blueberry Muffin", "sys-dining"),
	}}
	agg := newTestAggregator(src, &fakeRuleWriter{})

	receipt := &model.Receipt{
		ID: "r1",
		Items: []model.LineItem{
			{Description: "Whole Milk 1 gal"},
			{Description: "Cold Brew"},
			{Description: ""},
			{Description: "Blueberry Muffin"},
			{Description: "Unknown Thing"},
		},
	}
	rules := []model.CategoryRule{rule("brew", "brew", "sys-coffee", model.MatchKeyword)}

	got := agg.SuggestForReceipt(context.Background(), "user-1", receipt, rules)
	require.Len(t, got, 5)

	for i, item := range got {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, receipt.Items[i].Description, item.Description)
	}
	require.NotEmpty(t, got[0].Suggestions)
	assert.Equal(t, "sys-groceries", got[0].Suggestions[0].CategoryID)
	require.NotEmpty(t, got[1].Suggestions)
	assert.Equal(t, model.OriginRule, got[1].Suggestions[0].Origin)
	assert.Empty(t, got[2].Suggestions)
	require.NotEmpty(t, got[3].Suggestions)
	assert.Equal(t, "sys-dining", got[3].Suggestions[0].CategoryID)
	assert.Empty(t, got[4].Suggestions)

	assert.EqualValues(t, 1, src.calls.Load())
}

func TestAggregator_SuggestForReceipt_Empty(t *testing.T) {
	agg := newTestAggregator(&fakeSource{}, &fakeRuleWriter{})
	assert.Nil(t, agg.SuggestForReceipt(context.Background(), "user-1", nil, nil))
	assert.Nil(t, agg.SuggestForReceipt(context.Background(), "user-1", &model.Receipt{}, nil))
}

func TestAggregator_PromoteToRule(t *testing.T) {
	historical := model.SmartSuggestion{
		Pattern:    "  Starbucks Coffee ",
		CategoryID: "sys-coffee",
		Origin:     model.OriginHistory,
		Confidence: 0.45,
		UsageCount: 2,
	}

	t.Run("creates enabled rule", func(t *testing.T) {
		writer := &fakeRuleWriter{}
		agg := newTestAggregator(&fakeSource{}, writer)

		got, err := agg.PromoteToRule(context.Background(), "user-1", historical, model.MatchContains)
		require.NoError(t, err)
		require.Len(t, writer.created, 1)
		assert.Equal(t, "rule-1", got.ID)
		assert.Equal(t, "Starbucks Coffee", got.Pattern)
		assert.Equal(t, "user-1", got.UserID)
		assert.True(t, got.Enabled)
	})

	t.Run("promoted rule then wins", func(t *testing.T) {
		writer := &fakeRuleWriter{}
		src := &fakeSource{history: []model.HistoricalAssignment{userAssignment("Starbucks Coffee", "sys-dining")}}
		agg := newTestAggregator(src, writer)

		promoted, err := agg.PromoteToRule(context.Background(), "user-1", historical, model.MatchContains)
		require.NoError(t, err)

		got := agg.GetSuggestionsForItem(context.Background(), "user-1", "starbucks coffee", []model.CategoryRule{*promoted})
		require.Len(t, got, 1)
		assert.Equal(t, "sys-coffee", got[0].CategoryID)
		assert.Equal(t, model.OriginRule, got[0].Origin)
	})

	t.Run("rejects rule suggestions", func(t *testing.T) {
		agg := newTestAggregator(&fakeSource{}, &fakeRuleWriter{})
		s := historical
		s.Origin = model.OriginRule
		_, err := agg.PromoteToRule(context.Background(), "user-1", s, model.MatchContains)
		assert.ErrorIs(t, err, ErrAlreadyRule)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		agg := newTestAggregator(&fakeSource{}, &fakeRuleWriter{})
		s := historical
		s.CategoryID = "missing"
		_, err := agg.PromoteToRule(context.Background(), "user-1", s, model.MatchContains)
		assert.ErrorIs(t, err, pattern.ErrUnknownCategory)
	})

	t.Run("store failure", func(t *testing.T) {
		agg := newTestAggregator(&fakeSource{}, &fakeRuleWriter{err: errors.New("locked")})
		_, err := agg.PromoteToRule(context.Background(), "user-1", historical, model.MatchExact)
		assert.Error(t, err)
	})
}
