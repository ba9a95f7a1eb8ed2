package pattern

import (
	"testing"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggester_Suggest(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	categories := []model.Category{
		{ID: "sys-subscriptions", Slug: "subscriptions", Name: "Subscriptions"},
		{ID: "sys-entertainment", Slug: "entertainment", Name: "Entertainment"},
	}

	tests := []struct {
		name        string
		description string
		rules       []Rule
		want        model.SmartSuggestions
	}{
		{
			name:        "single contains rule",
			description: "Amazon Prime membership",
			rules: []Rule{
				{ID: "r1", Pattern: "amazon", MatchType: model.MatchContains, CategoryID: "sys-subscriptions", Enabled: true, CreatedAt: created},
			},
			want: model.SmartSuggestions{
				{
					Pattern:      "amazon",
					CategoryID:   "sys-subscriptions",
					CategoryName: "Subscriptions",
					RuleID:       "r1",
					Origin:       model.OriginRule,
					Confidence:   0.95,
					UsageCount:   1,
					LastUsed:     created,
				},
			},
		},
		{
			name:        "every match becomes a suggestion",
			description: "Prime Video rental",
			rules: []Rule{
				{ID: "r1", Pattern: "prime", MatchType: model.MatchContains, CategoryID: "sys-subscriptions", Enabled: true, CreatedAt: created},
				{ID: "r2", Pattern: "video movie", MatchType: model.MatchKeyword, CategoryID: "sys-entertainment", Enabled: true, CreatedAt: created},
				{ID: "r3", Pattern: "rental", MatchType: model.MatchContains, CategoryID: "sys-entertainment", Enabled: true, CreatedAt: created},
			},
			want: model.SmartSuggestions{
				{Pattern: "prime", CategoryID: "sys-subscriptions", CategoryName: "Subscriptions", RuleID: "r1", Origin: model.OriginRule, Confidence: 0.95, UsageCount: 1, LastUsed: created},
				{Pattern: "video movie", CategoryID: "sys-entertainment", CategoryName: "Entertainment", RuleID: "r2", Origin: model.OriginRule, Confidence: 0.95, UsageCount: 1, LastUsed: created},
				{Pattern: "rental", CategoryID: "sys-entertainment", CategoryName: "Entertainment", RuleID: "r3", Origin: model.OriginRule, Confidence: 0.95, UsageCount: 1, LastUsed: created},
			},
		},
		{
			name:        "no match",
			description: "Bananas",
			rules: []Rule{
				{ID: "r1", Pattern: "amazon", MatchType: model.MatchContains, CategoryID: "sys-subscriptions", Enabled: true},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggester := NewSuggester(NewMatcher(tt.rules), categories, 0.95)
			got := suggester.Suggest(tt.description)
			assert.Equal(t, tt.want, got)
			require.NoError(t, got.Validate())
		})
	}
}
