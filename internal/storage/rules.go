package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

const ruleColumns = `id, user_id, pattern, category_id, match_type, enabled, created_at`

// CreateRule stores a new rule for its owning user.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = s.now()
	}
	rule.Pattern = strings.TrimSpace(rule.Pattern)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_rules (id, user_id, pattern, category_id, match_type, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Pattern, rule.CategoryID, string(rule.MatchType),
		rule.Enabled, rule.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("rule %q: %w", rule.ID, common.ErrDuplicateEntry)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("category %q: %w", rule.CategoryID, common.ErrNotFound)
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	slog.Info("created category rule",
		"id", rule.ID,
		"pattern", rule.Pattern,
		"match_type", rule.MatchType,
		"category_id", rule.CategoryID)
	return nil
}

// GetRule returns one of the user's rules.
func (s *SQLiteStorage) GetRule(ctx context.Context, userID, id string) (*model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM category_rules
		WHERE user_id = ? AND id = ?`, userID, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns all of the user's rules in creation order.
func (s *SQLiteStorage) ListRules(ctx context.Context, userID string) ([]model.CategoryRule, error) {
	return s.listRules(ctx, userID, false)
}

// ListEnabledRules returns the user's enabled rules in creation order.
func (s *SQLiteStorage) ListEnabledRules(ctx context.Context, userID string) ([]model.CategoryRule, error) {
	return s.listRules(ctx, userID, true)
}

func (s *SQLiteStorage) listRules(ctx context.Context, userID string, enabledOnly bool) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM category_rules WHERE user_id = ?`
	if enabledOnly {
		query += ` AND enabled = 1`
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// SetRuleEnabled toggles a rule without removing it.
func (s *SQLiteStorage) SetRuleEnabled(ctx context.Context, userID, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE category_rules SET enabled = ?
		WHERE user_id = ? AND id = ?`, enabled, userID, id)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return expectOneRow(result, "rule", id)
}

// DeleteRule removes one of the user's rules.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM category_rules WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return expectOneRow(result, "rule", id)
}

func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, common.ErrNotFound)
	}
	return nil
}

func scanRule(row rowScanner) (model.CategoryRule, error) {
	var rule model.CategoryRule
	var matchType string
	if err := row.Scan(&rule.ID, &rule.UserID, &rule.Pattern, &rule.CategoryID,
		&matchType, &rule.Enabled, &rule.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule, err
		}
		return rule, fmt.Errorf("failed to scan rule: %w", err)
	}
	rule.MatchType = model.MatchType(matchType)
	return rule, nil
}
