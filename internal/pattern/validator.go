package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// Rule validation errors.
var (
	ErrEmptyPattern     = errors.New("rule pattern cannot be empty")
	ErrUnknownMatchType = errors.New("unknown match type")
	ErrUnknownCategory  = errors.New("rule references unknown category")
)

// Validator implements RuleValidator against a category snapshot.
type Validator struct {
	categories map[string]model.Category
}

// NewValidator creates a rule validator. A nil or empty category snapshot
// skips the category existence check.
func NewValidator(categories []model.Category) *Validator {
	return &Validator{categories: model.CategoryIndex(categories)}
}

// ValidateRule ensures the rule can match something and targets a known category.
func (v *Validator) ValidateRule(rule model.CategoryRule) error {
	if !rule.MatchType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMatchType, rule.MatchType)
	}

	if strings.TrimSpace(rule.Pattern) == "" {
		return ErrEmptyPattern
	}

	if len(v.categories) > 0 {
		if _, ok := v.categories[rule.CategoryID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, rule.CategoryID)
		}
	}

	return nil
}
