// Package suggest combines rule and history suggestions for line items.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/pattern"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
)

// ErrAlreadyRule is returned when promoting a suggestion that came from a rule.
var ErrAlreadyRule = errors.New("suggestion already comes from a rule")

// HistoryEngine loads and ranks past assignments.
type HistoryEngine interface {
	Load(ctx context.Context, userID string) ([]model.HistoricalAssignment, error)
	Rank(description string, past []model.HistoricalAssignment) model.SmartSuggestions
}

// RuleWriter stores promoted rules.
type RuleWriter interface {
	CreateRule(ctx context.Context, rule *model.CategoryRule) error
}

// Config holds aggregator options.
type Config struct {
	Thresholds policy.Thresholds
	Workers    int // concurrent items in SuggestForReceipt
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds: policy.Defaults(),
		Workers:    4,
	}
}

// Aggregator decides which suggestions a line item gets. Enabled rules win
// outright; history is consulted only when no rule matches.
type Aggregator struct {
	history    HistoryEngine
	rules      RuleWriter
	metrics    *metrics.Recorder
	categories []model.Category
	config     Config
}

// NewAggregator creates an aggregator. categories is the snapshot used for
// display names and rule validation; recorder may be nil.
func NewAggregator(history HistoryEngine, rules RuleWriter, categories []model.Category, recorder *metrics.Recorder, config Config) *Aggregator {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Aggregator{
		history:    history,
		rules:      rules,
		metrics:    recorder,
		categories: categories,
		config:     config,
	}
}

// ItemSuggestions holds the suggestions for one line item of a receipt.
type ItemSuggestions struct {
	Description string
	Suggestions model.SmartSuggestions
	Index       int
}

// GetSuggestionsForItem returns at most MaxSuggestions suggestions for a
// description. History read failures degrade to no suggestions.
func (a *Aggregator) GetSuggestionsForItem(ctx context.Context, userID, description string, rules []model.CategoryRule) model.SmartSuggestions {
	if strings.TrimSpace(description) == "" {
		return model.SmartSuggestions{}
	}

	return a.suggest(description, a.ruleSuggester(rules), func() []model.HistoricalAssignment {
		return a.loadHistory(ctx, userID)
	})
}

// SuggestForReceipt scores every line item of the receipt concurrently.
// Results are in item order. History is read at most once.
func (a *Aggregator) SuggestForReceipt(ctx context.Context, userID string, receipt *model.Receipt, rules []model.CategoryRule) []ItemSuggestions {
	if receipt == nil || len(receipt.Items) == 0 {
		return nil
	}

	ruleSuggester := a.ruleSuggester(rules)
	historyOnce := sync.OnceValue(func() []model.HistoricalAssignment {
		return a.loadHistory(ctx, userID)
	})

	results := make([]ItemSuggestions, len(receipt.Items))
	workChan := make(chan int, len(receipt.Items))
	for i := range receipt.Items {
		workChan <- i
	}
	close(workChan)

	workers := min(a.config.Workers, len(receipt.Items))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range workChan {
				item := receipt.Items[i]
				results[i] = ItemSuggestions{
					Index:       i,
					Description: item.Description,
				}
				if strings.TrimSpace(item.Description) == "" {
					results[i].Suggestions = model.SmartSuggestions{}
					continue
				}
				results[i].Suggestions = a.suggest(item.Description, ruleSuggester, historyOnce)
			}
		}()
	}
	wg.Wait()

	slog.Debug("suggested categories for receipt",
		"receipt_id", receipt.ID,
		"items", len(receipt.Items),
		"workers", workers)
	return results
}

// PromoteToRule turns an accepted history suggestion into a standing rule for
// the user. The suggestion's pattern becomes the rule pattern.
func (a *Aggregator) PromoteToRule(ctx context.Context, userID string, suggestion model.SmartSuggestion, matchType model.MatchType) (*model.CategoryRule, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.ErrMissingUser
	}
	if suggestion.Origin == model.OriginRule {
		return nil, ErrAlreadyRule
	}

	rule := &model.CategoryRule{
		UserID:     userID,
		Pattern:    strings.TrimSpace(suggestion.Pattern),
		CategoryID: suggestion.CategoryID,
		MatchType:  matchType,
		Enabled:    true,
	}
	if err := pattern.NewValidator(a.categories).ValidateRule(*rule); err != nil {
		return nil, fmt.Errorf("cannot promote suggestion: %w", err)
	}

	if err := a.rules.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to store promoted rule: %w", err)
	}

	slog.Info("promoted suggestion to rule",
		"rule_id", rule.ID,
		"pattern", rule.Pattern,
		"category_id", rule.CategoryID,
		"match_type", rule.MatchType)
	return rule, nil
}

func (a *Aggregator) ruleSuggester(rules []model.CategoryRule) *pattern.Suggester {
	return pattern.NewSuggester(pattern.NewMatcher(rules), a.categories, a.config.Thresholds.RuleConfidence)
}

func (a *Aggregator) suggest(description string, rules pattern.CategorySuggester, history func() []model.HistoricalAssignment) model.SmartSuggestions {
	start := time.Now()
	defer func() { a.metrics.SuggestDuration(time.Since(start)) }()

	limit := a.config.Thresholds.MaxSuggestions

	if matched := rules.Suggest(description); len(matched) > 0 {
		top := matched.TopN(limit)
		a.metrics.SuggestionsServed(string(model.OriginRule), len(top))
		return top
	}

	past := history()
	if len(past) == 0 {
		return model.SmartSuggestions{}
	}

	top := a.history.Rank(description, past).TopN(limit)
	a.metrics.SuggestionsServed(string(model.OriginHistory), len(top))
	return top
}

func (a *Aggregator) loadHistory(ctx context.Context, userID string) []model.HistoricalAssignment {
	past, err := a.history.Load(ctx, userID)
	if err != nil {
		common.LogError(ctx, err, "history unavailable, continuing without it", common.Fields{"user_id": userID})
		return nil
	}
	return past
}
