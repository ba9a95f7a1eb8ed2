package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrInvalidDateRange    = errors.New("start date must be before end date")
	ErrInvalidSource       = errors.New("invalid assignment source")
	ErrInvalidReceipt      = errors.New("invalid receipt")
	ErrInvalidAssignment   = errors.New("invalid category assignment")
	ErrInvalidRule         = errors.New("invalid category rule")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidHistoryLimit = errors.New("history limit must be positive")
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDateRange rejects ranges whose end precedes their start.
func validateDateRange(r model.DateRange) error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, r.End, r.Start)
	}
	return nil
}

// validateStruct runs tag validation and wraps the first failure with sentinel.
func validateStruct(v any, sentinel error) error {
	if err := structValidator.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", sentinel, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return nil
}

// validateReceipt validates a receipt and its items.
func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if strings.TrimSpace(receipt.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidReceipt)
	}
	if receipt.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidReceipt)
	}
	for i, item := range receipt.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d has no description", ErrInvalidReceipt, i)
		}
		if item.Confidence < 0 || item.Confidence > 1 {
			return fmt.Errorf("%w: item %d confidence must be between 0 and 1", ErrInvalidReceipt, i)
		}
	}
	return nil
}

// validateAssignment validates a category assignment.
func validateAssignment(assignment *model.CategoryAssignment) error {
	if assignment == nil {
		return fmt.Errorf("%w: assignment", ErrNilParameter)
	}
	if err := validateStruct(assignment, ErrInvalidAssignment); err != nil {
		return err
	}
	if !assignment.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, assignment.Source)
	}
	if c := assignment.Confidence; c != nil && (*c < 0 || *c > 1) {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidAssignment)
	}
	return nil
}

// validateRule validates a category rule.
func validateRule(rule *model.CategoryRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateStruct(rule, ErrInvalidRule); err != nil {
		return err
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		return fmt.Errorf("%w: blank pattern", ErrInvalidRule)
	}
	return nil
}

// validateCategory validates a category.
func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if strings.TrimSpace(category.Slug) == "" {
		return fmt.Errorf("%w: missing slug", ErrInvalidCategory)
	}
	if category.Icon != "" && !category.Icon.Valid() {
		return fmt.Errorf("%w: unknown icon %q", ErrInvalidCategory, category.Icon)
	}
	return nil
}
