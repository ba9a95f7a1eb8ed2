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

const categoryColumns = `id, slug, name, icon, is_system, parent_id, created_at`

// GetCategories returns every category, system categories first.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY is_system DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category by its ID.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// GetCategoryBySlug returns a category by slug, preferring the system category.
func (s *SQLiteStorage) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(slug, "slug"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE slug = ?
		ORDER BY is_system DESC, created_at
		LIMIT 1`, strings.ToLower(slug))
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", slug, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// CreateCategory stores a new category, assigning an ID when none is set.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.Icon == "" {
		category.Icon = model.IconTag
	}
	category.Slug = strings.ToLower(category.Slug)
	category.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, slug, name, icon, is_system, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.ID, category.Slug, category.Name, string(category.Icon),
		category.IsSystem, category.ParentID, category.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("category %q: %w", category.Slug, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("created category", "id", category.ID, "slug", category.Slug)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (model.Category, error) {
	var cat model.Category
	var icon string
	var parent sql.NullString

	if err := row.Scan(&cat.ID, &cat.Slug, &cat.Name, &icon, &cat.IsSystem, &parent, &cat.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cat, err
		}
		return cat, fmt.Errorf("failed to scan category: %w", err)
	}

	cat.Icon = model.IconKey(icon)
	if parent.Valid {
		cat.ParentID = &parent.String
	}
	return cat, nil
}
