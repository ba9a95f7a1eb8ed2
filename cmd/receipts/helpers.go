package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

const dateLayout = "2006-01-02"

// addRangeFlags registers --from and --to on cmd.
func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last day to include (YYYY-MM-DD)")
}

// rangeFromFlags reads --from/--to. Either may be omitted; --to covers the
// whole day.
func rangeFromFlags(cmd *cobra.Command) (model.DateRange, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return parseDateRange(from, to)
}

func parseDateRange(from, to string) (model.DateRange, error) {
	var r model.DateRange
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return r, fmt.Errorf("invalid --from date %q: expected YYYY-MM-DD", from)
		}
		r.Start = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return r, fmt.Errorf("invalid --to date %q: expected YYYY-MM-DD", to)
		}
		r.End = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return r, nil
}

// parseItemRef parses "<receipt-id>:<line-index>".
func parseItemRef(s string) (model.ItemRef, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return model.ItemRef{}, fmt.Errorf("invalid item %q: expected <receipt-id>:<index>", s)
	}
	index, err := strconv.Atoi(s[i+1:])
	if err != nil || index < 0 {
		return model.ItemRef{}, fmt.Errorf("invalid line index in %q", s)
	}
	return model.ItemRef{ReceiptID: s[:i], Index: index}, nil
}

func formatRef(ref model.ItemRef) string {
	return fmt.Sprintf("%s:%d", ref.ReceiptID, ref.Index)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
