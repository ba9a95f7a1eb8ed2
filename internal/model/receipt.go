package model

import "time"

// LineItem is one row of a receipt. It has no identity of its own: it is
// addressed by Index, its ordinal position in the receipt, and that position
// never changes once the receipt is stored.
type LineItem struct {
	Category    string // draft category guess from extraction
	Description string
	Index       int
	Quantity    float64
	UnitPrice   float64
	Total       float64
	Confidence  float64
	IsRefund    bool
}

// AdjustmentKind classifies the non-item amounts on a receipt.
type AdjustmentKind string

// Adjustment kinds.
const (
	AdjustmentDiscount AdjustmentKind = "discount"
	AdjustmentTax      AdjustmentKind = "tax"
	AdjustmentCharge   AdjustmentKind = "charge"
)

// Adjustment is a discount, tax or additional charge attached to a receipt.
type Adjustment struct {
	Kind        AdjustmentKind
	Description string
	Amount      float64
}

// Receipt is a processed document together with its ordered line items.
type Receipt struct {
	Date              time.Time
	CreatedAt         time.Time
	ID                string
	UserID            string
	StoreName         string
	Filename          string
	Items             []LineItem
	Discounts         []Adjustment
	Taxes             []Adjustment
	AdditionalCharges []Adjustment
	Subtotal          float64
	Total             float64
	IsReturn          bool
}

// Item returns the line item at index, or false when the index is outside
// the receipt's item list.
func (r *Receipt) Item(index int) (LineItem, bool) {
	if index < 0 || index >= len(r.Items) {
		return LineItem{}, false
	}
	return r.Items[index], true
}

// ItemRef addresses a single line item.
type ItemRef struct {
	ReceiptID string
	Index     int
}
