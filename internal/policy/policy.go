// Package policy holds the confidence thresholds that steer suggestion,
// assignment and review. They are independent knobs applied at different
// points of the pipeline and must not be reused for one another.
package policy

import (
	"errors"
	"fmt"
)

// Default threshold values.
const (
	DefaultHistoricalInclusion     = 0.30
	DefaultDraftResuggest          = 0.60
	DefaultReviewTrigger           = 0.75
	DefaultHistoricalCap           = 0.85
	DefaultRuleConfidence          = 0.95
	DefaultHistoricalDampening     = 0.80
	DefaultHistoricalReinforcement = 0.10
	DefaultUserConfidence          = 1.0
	DefaultHistoryLimit            = 500
	DefaultMaxSuggestions          = 3
)

// ErrInvalidThresholds is returned when a threshold set breaks an ordering invariant.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds is the full set of policy constants.
type Thresholds struct {
	// HistoricalInclusion: history matches scoring at or below this are discarded.
	HistoricalInclusion float64 `mapstructure:"historical_inclusion"`
	// DraftResuggest: extracted items below this confidence are re-suggested on import.
	DraftResuggest float64 `mapstructure:"draft_resuggest"`
	// ReviewTrigger: assignments below this confidence land in the review queue.
	ReviewTrigger float64 `mapstructure:"review_trigger"`
	// HistoricalCap bounds historical confidence; it stays below RuleConfidence.
	HistoricalCap float64 `mapstructure:"historical_cap"`
	// RuleConfidence is the fixed confidence of a rule match.
	RuleConfidence float64 `mapstructure:"rule_confidence"`
	// HistoricalDampening scales the similarity of the first historical hit.
	HistoricalDampening float64 `mapstructure:"historical_dampening"`
	// HistoricalReinforcement scales the similarity of each further hit.
	HistoricalReinforcement float64 `mapstructure:"historical_reinforcement"`
	// UserConfidence is recorded for user assignments.
	UserConfidence float64 `mapstructure:"user_confidence"`
	// HistoryLimit caps how many past user assignments are mined.
	HistoryLimit int `mapstructure:"history_limit"`
	// MaxSuggestions caps the suggestions returned for one item.
	MaxSuggestions int `mapstructure:"max_suggestions"`
}

// Defaults returns the production thresholds.
func Defaults() Thresholds {
	return Thresholds{
		HistoricalInclusion:     DefaultHistoricalInclusion,
		DraftResuggest:          DefaultDraftResuggest,
		ReviewTrigger:           DefaultReviewTrigger,
		HistoricalCap:           DefaultHistoricalCap,
		RuleConfidence:          DefaultRuleConfidence,
		HistoricalDampening:     DefaultHistoricalDampening,
		HistoricalReinforcement: DefaultHistoricalReinforcement,
		UserConfidence:          DefaultUserConfidence,
		HistoryLimit:            DefaultHistoryLimit,
		MaxSuggestions:          DefaultMaxSuggestions,
	}
}

// Validate checks ranges and the ordering between thresholds.
func (t Thresholds) Validate() error {
	probabilities := map[string]float64{
		"historical_inclusion":     t.HistoricalInclusion,
		"draft_resuggest":          t.DraftResuggest,
		"review_trigger":           t.ReviewTrigger,
		"historical_cap":           t.HistoricalCap,
		"rule_confidence":          t.RuleConfidence,
		"historical_dampening":     t.HistoricalDampening,
		"historical_reinforcement": t.HistoricalReinforcement,
		"user_confidence":          t.UserConfidence,
	}
	for name, v := range probabilities {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %.2f", ErrInvalidThresholds, name, v)
		}
	}

	if t.HistoricalCap >= t.RuleConfidence {
		return fmt.Errorf("%w: historical_cap (%.2f) must be below rule_confidence (%.2f)",
			ErrInvalidThresholds, t.HistoricalCap, t.RuleConfidence)
	}
	if t.HistoricalCap <= 0 {
		return fmt.Errorf("%w: historical_cap must be positive", ErrInvalidThresholds)
	}
	if t.HistoryLimit <= 0 {
		return fmt.Errorf("%w: history_limit must be positive, got %d", ErrInvalidThresholds, t.HistoryLimit)
	}
	if t.MaxSuggestions <= 0 {
		return fmt.Errorf("%w: max_suggestions must be positive, got %d", ErrInvalidThresholds, t.MaxSuggestions)
	}

	return nil
}
