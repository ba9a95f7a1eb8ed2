package pattern

import (
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// Ensure Suggester implements CategorySuggester interface.
var _ CategorySuggester = (*Suggester)(nil)

// Suggester implements CategorySuggester using category rules.
type Suggester struct {
	matcher    Matcher
	categories map[string]model.Category
	confidence float64
}

// NewSuggester creates a rule suggester. Every match is reported with the
// given fixed confidence; categories is a read-only snapshot used for display names.
func NewSuggester(matcher Matcher, categories []model.Category, confidence float64) *Suggester {
	return &Suggester{
		matcher:    matcher,
		categories: model.CategoryIndex(categories),
		confidence: confidence,
	}
}

// Suggest returns one suggestion per matching enabled rule, in rule order.
func (s *Suggester) Suggest(description string) model.SmartSuggestions {
	rules := s.matcher.Match(description)
	if len(rules) == 0 {
		return nil
	}

	suggestions := make(model.SmartSuggestions, 0, len(rules))
	for _, rule := range rules {
		suggestions = append(suggestions, model.SmartSuggestion{
			Pattern:      rule.Pattern,
			CategoryID:   rule.CategoryID,
			CategoryName: s.categories[rule.CategoryID].Name,
			RuleID:       rule.ID,
			Origin:       model.OriginRule,
			Confidence:   s.confidence,
			UsageCount:   1,
			LastUsed:     rule.CreatedAt,
		})
	}

	return suggestions
}
