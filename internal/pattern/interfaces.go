// Package pattern evaluates user-authored category rules against item descriptions.
package pattern

import (
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// RuleValidator checks a rule before it is stored.
type RuleValidator interface {
	// ValidateRule returns an error describing why the rule can never match.
	ValidateRule(rule model.CategoryRule) error
}

// CategorySuggester turns matching rules into ranked suggestions.
type CategorySuggester interface {
	// Suggest returns one suggestion per matching enabled rule.
	Suggest(description string) model.SmartSuggestions
}

// Matcher evaluates descriptions against category rules.
type Matcher interface {
	// Match returns every enabled rule whose pattern matches the description.
	Match(description string) []Rule
}

// Rule is an alias to the model.CategoryRule type for convenience.
type Rule = model.CategoryRule
