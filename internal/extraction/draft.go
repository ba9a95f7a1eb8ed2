// Package extraction imports receipts produced by the upstream extraction
// step and gives their line items a first category.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// ErrInvalidDraft is returned when a draft cannot be turned into a receipt.
var ErrInvalidDraft = errors.New("invalid receipt draft")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// DraftDate accepts the date formats extraction emits.
type DraftDate struct {
	time.Time
}

// UnmarshalJSON parses a quoted date in any supported layout.
func (d *DraftDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", raw)
}

// DraftItem is one extracted line. Category and Confidence are a low-trust
// seed, not an assignment.
type DraftItem struct {
	Confidence  *float64 `json:"confidence,omitempty"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	Total       float64  `json:"total"`
	IsRefund    bool     `json:"isRefund,omitempty"`
}

// DraftAdjustment is a discount, tax or extra charge line.
type DraftAdjustment struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Draft is the receipt shape handed over by extraction.
type Draft struct {
	Date              DraftDate         `json:"date"`
	StoreName         string            `json:"storeName"`
	LineItems         []DraftItem       `json:"lineItems"`
	Discounts         []DraftAdjustment `json:"discounts,omitempty"`
	Taxes             []DraftAdjustment `json:"taxes,omitempty"`
	AdditionalCharges []DraftAdjustment `json:"additionalCharges,omitempty"`
	Subtotal          float64           `json:"subtotal"`
	Total             float64           `json:"total"`
	IsReturn          bool              `json:"isReturn,omitempty"`
}

// DecodeDraft reads a single draft document from r.
func DecodeDraft(r io.Reader) (*Draft, error) {
	var draft Draft
	dec := json.NewDecoder(r)
	if err := dec.Decode(&draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Validate checks the fields a receipt cannot be stored without.
func (d *Draft) Validate() error {
	if d.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidDraft)
	}
	for i, item := range d.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: line item %d has no description", ErrInvalidDraft, i)
		}
		if c := item.Confidence; c != nil && (*c < 0 || *c > 1) {
			return fmt.Errorf("%w: line item %d confidence %.2f outside [0,1]", ErrInvalidDraft, i, *c)
		}
	}
	return nil
}

// Receipt converts the draft into an unsaved receipt for userID. Item order
// is preserved and becomes the permanent line index.
func (d *Draft) Receipt(userID, filename string) *model.Receipt {
	receipt := &model.Receipt{
		UserID:    userID,
		StoreName: strings.TrimSpace(d.StoreName),
		Filename:  filename,
		Date:      d.Date.Time,
		Subtotal:  d.Subtotal,
		Total:     d.Total,
		IsReturn:  d.IsReturn,
		Items:     make([]model.LineItem, len(d.LineItems)),
	}
	for i, item := range d.LineItems {
		receipt.Items[i] = model.LineItem{
			Index:       i,
			Description: strings.TrimSpace(item.Description),
			Category:    strings.TrimSpace(item.Category),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			Confidence:  item.confidence(),
			IsRefund:    item.IsRefund,
		}
	}
	receipt.Discounts = adjustments(model.AdjustmentDiscount, d.Discounts)
	receipt.Taxes = adjustments(model.AdjustmentTax, d.Taxes)
	receipt.AdditionalCharges = adjustments(model.AdjustmentCharge, d.AdditionalCharges)
	return receipt
}

func (item DraftItem) confidence() float64 {
	if item.Confidence == nil {
		return 0
	}
	return *item.Confidence
}

func adjustments(kind model.AdjustmentKind, in []DraftAdjustment) []model.Adjustment {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Adjustment, len(in))
	for i, a := range in {
		out[i] = model.Adjustment{Kind: kind, Description: a.Description, Amount: a.Amount}
	}
	return out
}
