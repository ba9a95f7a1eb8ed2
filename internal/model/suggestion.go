package model

import (
	"fmt"
	"sort"
	"time"
)

// SuggestionOrigin identifies which engine produced a suggestion.
type SuggestionOrigin string

// Suggestion origins.
const (
	OriginRule    SuggestionOrigin = "rule"
	OriginHistory SuggestionOrigin = "history"
)

// AssignmentSource maps the origin onto the provenance recorded when the
// suggestion is applied automatically.
func (o SuggestionOrigin) AssignmentSource() AssignmentSource {
	if o == OriginRule {
		return SourceRule
	}
	return SourceModel
}

// SmartSuggestion is a ranked category candidate for one line item. It is
// computed per request and never stored.
type SmartSuggestion struct {
	LastUsed     time.Time
	Pattern      string // rule pattern or matched historical description
	CategoryID   string
	CategoryName string
	RuleID       string
	Origin       SuggestionOrigin
	Confidence   float64
	UsageCount   int
}

// Weight is the ranking key used for historical suggestions.
func (s *SmartSuggestion) Weight() float64 {
	return s.Confidence * float64(s.UsageCount)
}

// Validate ensures the SmartSuggestion has valid data.
func (s *SmartSuggestion) Validate() error {
	if s.CategoryID == "" {
		return fmt.Errorf("category id is required")
	}

	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", s.Confidence)
	}

	if s.UsageCount < 1 {
		return fmt.Errorf("usage count must be positive, got %d", s.UsageCount)
	}

	return nil
}

// SmartSuggestions is a slice of SmartSuggestion with ranking helpers.
type SmartSuggestions []SmartSuggestion

// SortByWeight orders suggestions by confidence×usage, highest first.
// Equal weights keep their current relative order.
func (s SmartSuggestions) SortByWeight() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Weight() > s[j].Weight()
	})
}

// TopN returns at most n suggestions from the front of the slice.
func (s SmartSuggestions) TopN(n int) SmartSuggestions {
	if n <= 0 {
		return SmartSuggestions{}
	}

	if n > len(s) {
		n = len(s)
	}

	result := make(SmartSuggestions, n)
	copy(result, s[:n])
	return result
}

// Top returns the first suggestion, or nil if empty.
func (s SmartSuggestions) Top() *SmartSuggestion {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// Validate ensures all suggestions in the slice are valid.
func (s SmartSuggestions) Validate() error {
	for i := range s {
		if err := s[i].Validate(); err != nil {
			return fmt.Errorf("invalid suggestion at index %d: %w", i, err)
		}
	}
	return nil
}
