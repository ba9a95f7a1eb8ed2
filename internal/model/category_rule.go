// Package model defines the core data structures shared by the categorization packages.
package model

import "time"

// MatchType selects how a rule pattern is compared with an item description.
type MatchType string

// Match types.
const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchKeyword  MatchType = "keyword"
)

// Valid reports whether m is a known match type.
func (m MatchType) Valid() bool {
	switch m {
	case MatchExact, MatchContains, MatchKeyword:
		return true
	}
	return false
}

// CategoryRule is a user-authored pattern mapping matching descriptions to a category.
// Disabled rules are kept so they can be re-enabled, but never match.
type CategoryRule struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	UserID     string    `json:"user_id" validate:"required"`
	Pattern    string    `json:"pattern" validate:"required"`
	CategoryID string    `json:"category_id" validate:"required"`
	MatchType  MatchType `json:"match_type" validate:"required,oneof=exact contains keyword"`
	Enabled    bool      `json:"enabled"`
}
