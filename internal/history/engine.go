// Package history suggests categories for a line item from the user's own
// confirmed assignments of similar items.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
	"github.com/Veraticus/the-receipts-must-flow/internal/similarity"
)

// Source supplies past assignments, most recent first.
type Source interface {
	GetUserHistory(ctx context.Context, userID string, source model.AssignmentSource, limit int) ([]model.HistoricalAssignment, error)
}

// Engine mines user-confirmed assignments for category suggestions.
type Engine struct {
	source     Source
	thresholds policy.Thresholds
}

// NewEngine creates a history engine.
func NewEngine(source Source, thresholds policy.Thresholds) *Engine {
	return &Engine{
		source:     source,
		thresholds: thresholds,
	}
}

// Suggest returns categories the user previously chose for similar items,
// ranked by confidence×usage. Only assignments with source user count.
func (e *Engine) Suggest(ctx context.Context, description, userID string) (model.SmartSuggestions, error) {
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}

	past, err := e.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	suggestions := e.Rank(description, past)
	slog.Debug("historical suggestions",
		"description", description,
		"history_size", len(past),
		"suggestions", len(suggestions))
	return suggestions, nil
}

// Load fetches the user's most recent user-sourced assignments. Callers
// scoring many descriptions at once load once and Rank each.
func (e *Engine) Load(ctx context.Context, userID string) ([]model.HistoricalAssignment, error) {
	past, err := e.source.GetUserHistory(ctx, userID, model.SourceUser, e.thresholds.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment history: %w", err)
	}
	return past, nil
}

// Rank scores description against already loaded history. Entries whose line
// item could not be found are skipped.
func (e *Engine) Rank(description string, past []model.HistoricalAssignment) model.SmartSuggestions {
	t := e.thresholds
	byCategory := make(map[string]int)
	var out model.SmartSuggestions

	for _, h := range past {
		if !h.Found {
			continue
		}

		sim := similarity.Score(description, h.Description)
		if sim <= t.HistoricalInclusion {
			continue
		}

		categoryID := h.Assignment.CategoryID
		if i, ok := byCategory[categoryID]; ok {
			s := &out[i]
			s.UsageCount++
			s.Confidence = min(s.Confidence+sim*t.HistoricalReinforcement, t.HistoricalCap)
			continue
		}

		byCategory[categoryID] = len(out)
		out = append(out, model.SmartSuggestion{
			Pattern:      h.Description,
			CategoryID:   categoryID,
			CategoryName: h.Assignment.CategoryName,
			Origin:       model.OriginHistory,
			Confidence:   min(sim*t.HistoricalDampening, t.HistoricalCap),
			UsageCount:   1,
			LastUsed:     h.Assignment.UpdatedAt,
		})
	}

	out.SortByWeight()
	return out.TopN(t.MaxSuggestions)
}
