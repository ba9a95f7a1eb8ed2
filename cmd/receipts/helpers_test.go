package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func TestParseDateRange(t *testing.T) {
	march1 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	endOfMarch31 := time.Date(2024, time.March, 31, 23, 59, 59, 999999999, time.UTC)

	tests := []struct {
		want    model.DateRange
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{name: "open", want: model.DateRange{}},
		{name: "from only", from: "2024-03-01", want: model.DateRange{Start: march1}},
		{name: "to covers the day", to: "2024-03-31", want: model.DateRange{End: endOfMarch31}},
		{name: "both", from: "2024-03-01", to: "2024-03-31", want: model.DateRange{Start: march1, End: endOfMarch31}},
		{name: "same day", from: "2024-03-01", to: "2024-03-01", want: model.DateRange{Start: march1, End: march1.Add(24*time.Hour - time.Nanosecond)}},
		{name: "reversed", from: "2024-03-31", to: "2024-03-01", wantErr: true},
		{name: "bad from", from: "03/01/2024", wantErr: true},
		{name: "bad to", to: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDateRange(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Start.Equal(got.Start), "start %v", got.Start)
			assert.True(t, tt.want.End.Equal(got.End), "end %v", got.End)
		})
	}
}

func TestParseItemRef(t *testing.T) {
	tests := []struct {
		input   string
		want    model.ItemRef
		wantErr bool
	}{
		{input: "abc:0", want: model.ItemRef{ReceiptID: "abc", Index: 0}},
		{input: "abc:12", want: model.ItemRef{ReceiptID: "abc", Index: 12}},
		{input: "a:b:3", want: model.ItemRef{ReceiptID: "a:b", Index: 3}},
		{input: "abc", wantErr: true},
		{input: ":3", wantErr: true},
		{input: "abc:", wantErr: true},
		{input: "abc:x", wantErr: true},
		{input: "abc:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseItemRef(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, formatRef(got))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "Starbuc…", truncate("Starbucks Coffee", 8))
	assert.Equal(t, "café…", truncate("cafébabe", 5))
}
