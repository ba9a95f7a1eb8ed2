package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// UpsertAssignment writes the assignment for (ReceiptID, LineItemIndex),
// overwriting any existing row for that pair. The line item and category must
// exist; otherwise common.ErrNotFound is returned. The existing row keeps its ID
// and CreatedAt; the assignment is updated to reflect what was stored.
func (s *SQLiteStorage) UpsertAssignment(ctx context.Context, assignment *model.CategoryAssignment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAssignment(assignment); err != nil {
		return err
	}

	now := s.now()
	newID := uuid.NewString()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO category_assignments (
				id, receipt_id, line_index, category_id, source, confidence,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(receipt_id, line_index) DO UPDATE SET
				category_id = excluded.category_id,
				source = excluded.source,
				confidence = excluded.confidence,
				updated_at = excluded.updated_at`,
			newID, assignment.ReceiptID, assignment.LineItemIndex, assignment.CategoryID,
			string(assignment.Source), assignment.Confidence, now, now,
		)
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return fmt.Errorf("line item %s#%d or category %q: %w",
					assignment.ReceiptID, assignment.LineItemIndex, assignment.CategoryID, common.ErrNotFound)
			}
			return fmt.Errorf("failed to upsert assignment for %s#%d: %w",
				assignment.ReceiptID, assignment.LineItemIndex, err)
		}

		if err := readBackAssignmentKey(ctx, tx, assignment); err != nil {
			return err
		}
		assignment.UpdatedAt = now

		slog.Debug("upserted assignment",
			"receipt_id", assignment.ReceiptID,
			"line_index", assignment.LineItemIndex,
			"category_id", assignment.CategoryID,
			"source", assignment.Source)
		return nil
	})
}

func readBackAssignmentKey(ctx context.Context, q queryable, assignment *model.CategoryAssignment) error {
	err := q.QueryRowContext(ctx, `
		SELECT id, created_at
		FROM category_assignments
		WHERE receipt_id = ? AND line_index = ?`,
		assignment.ReceiptID, assignment.LineItemIndex,
	).Scan(&assignment.ID, &assignment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to read back assignment: %w", err)
	}
	return nil
}

const assignmentColumns = `
	a.id, a.receipt_id, a.line_index, a.category_id, a.source, a.confidence,
	a.created_at, a.updated_at, c.name, c.slug, c.icon`

// GetAssignmentsForReceipt returns a receipt's assignments with category
// display fields, ordered by line index.
func (s *SQLiteStorage) GetAssignmentsForReceipt(ctx context.Context, receiptID string) ([]model.CategoryAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(receiptID, "receiptID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM category_assignments a
		JOIN categories c ON c.id = a.category_id
		WHERE a.receipt_id = ?
		ORDER BY a.line_index`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAssignments(rows)
}

// GetAssignmentsInRange returns every assignment on the user's receipts dated
// inside the range, ordered by receipt date then line index.
func (s *SQLiteStorage) GetAssignmentsInRange(ctx context.Context, userID string, dateRange model.DateRange) ([]model.CategoryAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateDateRange(dateRange); err != nil {
		return nil, err
	}

	where, args := rangeClause("r.date", userID, dateRange)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM category_assignments a
		JOIN receipts r ON r.id = a.receipt_id
		JOIN categories c ON c.id = a.category_id
		WHERE `+where+`
		ORDER BY r.date, a.receipt_id, a.line_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments in range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAssignments(rows)
}

// GetUserHistory returns the user's most recently written assignments of the
// given source, newest first, joined to the line item each one points at.
func (s *SQLiteStorage) GetUserHistory(ctx context.Context, userID string, source model.AssignmentSource, limit int) ([]model.HistoricalAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHistoryLimit, limit)
	}

	// rowid order is write order; an overwritten row keeps its original slot.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`, li.description
		FROM category_assignments a
		JOIN receipts r ON r.id = a.receipt_id
		JOIN categories c ON c.id = a.category_id
		LEFT JOIN line_items li
			ON li.receipt_id = a.receipt_id AND li.line_index = a.line_index
		WHERE r.user_id = ? AND a.source = ?
		ORDER BY a.rowid DESC
		LIMIT ?`, userID, string(source), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.HistoricalAssignment
	for rows.Next() {
		var h model.HistoricalAssignment
		var desc sql.NullString
		if err := scanAssignment(rows, &h.Assignment, &desc); err != nil {
			return nil, err
		}
		h.Description = desc.String
		h.Found = desc.Valid
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment history: %w", err)
	}

	return history, nil
}

func collectAssignments(rows *sql.Rows) ([]model.CategoryAssignment, error) {
	var assignments []model.CategoryAssignment
	for rows.Next() {
		var a model.CategoryAssignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return assignments, nil
}

func scanAssignment(row rowScanner, a *model.CategoryAssignment, extra ...any) error {
	var source, icon string
	var confidence sql.NullFloat64

	dest := []any{
		&a.ID, &a.ReceiptID, &a.LineItemIndex, &a.CategoryID, &source, &confidence,
		&a.CreatedAt, &a.UpdatedAt, &a.CategoryName, &a.CategorySlug, &icon,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("failed to scan assignment: %w", err)
	}

	a.Source = model.AssignmentSource(source)
	a.CategoryIcon = model.IconKey(icon)
	if confidence.Valid {
		c := confidence.Float64
		a.Confidence = &c
	}
	return nil
}
