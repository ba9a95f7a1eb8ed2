package model

import "time"

// DateRange is an inclusive period. A zero Start or End leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ReviewReason explains why a line item is in the review queue.
type ReviewReason string

// Review reasons.
const (
	ReasonUncategorized ReviewReason = "uncategorized"
	ReasonLowConfidence ReviewReason = "low_confidence"
)

// ReviewItem is a line item that needs a human to confirm its category.
type ReviewItem struct {
	Date          time.Time
	ReceiptID     string
	StoreName     string
	Description   string
	CategoryID    string // empty when uncategorized
	Source        AssignmentSource
	Reason        ReviewReason
	LineItemIndex int
	Total         float64
	Confidence    float64
}

// Ref returns the line item the review entry points at.
func (r *ReviewItem) Ref() ItemRef {
	return ItemRef{ReceiptID: r.ReceiptID, Index: r.LineItemIndex}
}

// CategoryStats is the spending rollup for one category.
type CategoryStats struct {
	CategoryID     string
	Name           string
	Slug           string
	Icon           IconKey
	TotalAmount    float64
	AveragePerItem float64
	Percentage     float64
	ItemCount      int
	ReceiptCount   int
}
