package pattern

import (
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// MatcherImpl implements Matcher for a fixed snapshot of rules.
type MatcherImpl struct {
	keywords [][]string // pre-split keywords, parallel to rules
	rules    []Rule
}

// NewMatcher creates a new pattern matcher with the given rules.
func NewMatcher(rules []Rule) *MatcherImpl {
	m := &MatcherImpl{
		rules:    rules,
		keywords: make([][]string, len(rules)),
	}

	// Pre-split keyword patterns
	for i, rule := range rules {
		if rule.MatchType == model.MatchKeyword {
			m.keywords[i] = Keywords(rule.Pattern)
		}
	}

	return m
}

// Match evaluates a description against all enabled rules, in rule order.
func (m *MatcherImpl) Match(description string) []Rule {
	var matches []Rule

	desc := strings.ToLower(description)
	for i, rule := range m.rules {
		if !rule.Enabled {
			continue
		}

		if m.matchesRule(desc, rule, m.keywords[i]) {
			matches = append(matches, rule)
		}
	}

	return matches
}

// matchesRule checks a lower-cased description against one rule.
func (m *MatcherImpl) matchesRule(desc string, rule Rule, keywords []string) bool {
	pattern := strings.ToLower(rule.Pattern)
	if strings.TrimSpace(pattern) == "" {
		return false
	}

	switch rule.MatchType {
	case model.MatchExact:
		return desc == pattern
	case model.MatchContains:
		return strings.Contains(desc, pattern)
	case model.MatchKeyword:
		for _, kw := range keywords {
			if strings.Contains(desc, kw) {
				return true
			}
		}
	}

	return false
}

// Keywords splits a keyword pattern into its lower-cased, non-empty keywords.
func Keywords(pattern string) []string {
	fields := strings.Fields(strings.ToLower(pattern))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if kw := strings.TrimSpace(f); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
