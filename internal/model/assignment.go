package model

import "time"

// AssignmentSource records who or what produced a category assignment.
type AssignmentSource string

// Assignment sources.
const (
	SourceModel AssignmentSource = "model"
	SourceUser  AssignmentSource = "user"
	SourceRule  AssignmentSource = "rule"
	SourceSplit AssignmentSource = "split" // reserved for multi-category splits
)

// Valid reports whether s is a known source.
func (s AssignmentSource) Valid() bool {
	switch s {
	case SourceModel, SourceUser, SourceRule, SourceSplit:
		return true
	}
	return false
}

// CategoryAssignment maps one line item to a category with provenance.
// At most one exists per (ReceiptID, LineItemIndex).
type CategoryAssignment struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Confidence    *float64 // nil for user assignments read from older rows
	ID            string
	ReceiptID     string `validate:"required"`
	CategoryID    string `validate:"required"`
	Source        AssignmentSource
	CategoryName  string
	CategorySlug  string
	CategoryIcon  IconKey
	LineItemIndex int `validate:"gte=0"`
}

// Ref returns the line item the assignment points at.
func (a *CategoryAssignment) Ref() ItemRef {
	return ItemRef{ReceiptID: a.ReceiptID, Index: a.LineItemIndex}
}

// EffectiveConfidence is the trust placed in the assignment. User assignments
// are ground truth; anything else without a recorded confidence counts as zero.
func (a *CategoryAssignment) EffectiveConfidence() float64 {
	if a.Source == SourceUser {
		return 1.0
	}
	if a.Confidence == nil {
		return 0
	}
	return *a.Confidence
}

// HistoricalAssignment is a past assignment joined to the line item it points at.
// Found is false when the index no longer resolves to an item.
type HistoricalAssignment struct {
	Assignment  CategoryAssignment
	Description string
	Found       bool
}
