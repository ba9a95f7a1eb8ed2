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

// SaveReceipt stores a receipt with its line items and adjustments in one
// transaction. Item indexes are rewritten to their position in Items; they
// are fixed from this point on.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = s.now()
	}
	receipt.Date = receipt.Date.UTC()
	for i := range receipt.Items {
		receipt.Items[i].Index = i
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO receipts (
				id, user_id, store_name, date, subtotal, total,
				filename, is_return, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			receipt.ID, receipt.UserID, receipt.StoreName, receipt.Date,
			receipt.Subtotal, receipt.Total, receipt.Filename, receipt.IsReturn,
			receipt.CreatedAt,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("receipt %q: %w", receipt.ID, common.ErrDuplicateEntry)
			}
			return fmt.Errorf("failed to insert receipt: %w", err)
		}

		itemStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO line_items (
				receipt_id, line_index, description, quantity, unit_price,
				total, is_refund, draft_category, confidence
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare line item statement: %w", err)
		}
		defer func() { _ = itemStmt.Close() }()

		for _, item := range receipt.Items {
			if _, err := itemStmt.ExecContext(ctx,
				receipt.ID, item.Index, item.Description, item.Quantity, item.UnitPrice,
				item.Total, item.IsRefund, item.Category, item.Confidence,
			); err != nil {
				return fmt.Errorf("failed to insert line item %d: %w", item.Index, err)
			}
		}

		return saveAdjustmentsTx(ctx, tx, receipt)
	})
	if err != nil {
		return err
	}

	slog.Debug("saved receipt", "id", receipt.ID, "items", len(receipt.Items))
	return nil
}

func saveAdjustmentsTx(ctx context.Context, tx *sql.Tx, receipt *model.Receipt) error {
	groups := [][]model.Adjustment{receipt.Discounts, receipt.Taxes, receipt.AdditionalCharges}
	for _, group := range groups {
		for _, adj := range group {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO receipt_adjustments (receipt_id, kind, description, amount)
				VALUES (?, ?, ?, ?)`,
				receipt.ID, string(adj.Kind), adj.Description, adj.Amount,
			); err != nil {
				return fmt.Errorf("failed to insert %s adjustment: %w", adj.Kind, err)
			}
		}
	}
	return nil
}

// GetReceipt returns a receipt with its items and adjustments.
func (s *SQLiteStorage) GetReceipt(ctx context.Context, id string) (*model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+receiptColumns+`
		FROM receipts
		WHERE id = ?`, id)

	receipt, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	receipts := []model.Receipt{receipt}
	if err := s.loadChildren(ctx, receipts); err != nil {
		return nil, err
	}
	return &receipts[0], nil
}

// ListReceipts returns the user's receipts dated inside the range, oldest first.
func (s *SQLiteStorage) ListReceipts(ctx context.Context, userID string, dateRange model.DateRange) ([]model.Receipt, error) {
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
		SELECT `+receiptColumns+`
		FROM receipts r
		WHERE `+where+`
		ORDER BY r.date, r.created_at, r.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	if err := s.loadChildren(ctx, receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt; items and assignments go with it.
func (s *SQLiteStorage) DeleteReceipt(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return expectOneRow(result, "receipt", id)
}

const receiptColumns = `id, user_id, store_name, date, subtotal, total, filename, is_return, created_at`

func scanReceipt(row rowScanner) (model.Receipt, error) {
	var r model.Receipt
	err := row.Scan(&r.ID, &r.UserID, &r.StoreName, &r.Date, &r.Subtotal, &r.Total,
		&r.Filename, &r.IsReturn, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan receipt: %w", err)
	}
	return r, nil
}

// loadChildren fills items and adjustments for the given receipts in place.
// Receipt IDs are bound in batches of maxBoundIDs.
func (s *SQLiteStorage) loadChildren(ctx context.Context, receipts []model.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	byID := make(map[string]*model.Receipt, len(receipts))
	ids := make([]string, len(receipts))
	for i := range receipts {
		byID[receipts[i].ID] = &receipts[i]
		ids[i] = receipts[i].ID
	}

	for _, batch := range chunkIDs(ids, maxBoundIDs) {
		if err := s.loadChildrenBatch(ctx, byID, batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) loadChildrenBatch(ctx context.Context, byID map[string]*model.Receipt, batch []string) error {
	ids := make([]any, len(batch))
	for i, id := range batch {
		ids[i] = id
	}
	in := placeholders(len(ids))

	rows, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, line_index, description, quantity, unit_price,
			total, is_refund, draft_category, confidence
		FROM line_items
		WHERE receipt_id IN (`+in+`)
		ORDER BY receipt_id, line_index`, ids...)
	if err != nil {
		return fmt.Errorf("failed to query line items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var receiptID string
		var item model.LineItem
		if err := rows.Scan(&receiptID, &item.Index, &item.Description, &item.Quantity,
			&item.UnitPrice, &item.Total, &item.IsRefund, &item.Category, &item.Confidence); err != nil {
			return fmt.Errorf("failed to scan line item: %w", err)
		}
		if r, ok := byID[receiptID]; ok {
			r.Items = append(r.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating line items: %w", err)
	}

	adjRows, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, kind, description, amount
		FROM receipt_adjustments
		WHERE receipt_id IN (`+in+`)
		ORDER BY id`, ids...)
	if err != nil {
		return fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer func() { _ = adjRows.Close() }()

	for adjRows.Next() {
		var receiptID, kind string
		var adj model.Adjustment
		if err := adjRows.Scan(&receiptID, &kind, &adj.Description, &adj.Amount); err != nil {
			return fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adj.Kind = model.AdjustmentKind(kind)

		r, ok := byID[receiptID]
		if !ok {
			continue
		}
		switch adj.Kind {
		case model.AdjustmentDiscount:
			r.Discounts = append(r.Discounts, adj)
		case model.AdjustmentTax:
			r.Taxes = append(r.Taxes, adj)
		case model.AdjustmentCharge:
			r.AdditionalCharges = append(r.AdditionalCharges, adj)
		}
	}
	return adjRows.Err()
}

// rangeClause builds the user and date filter shared by range queries.
func rangeClause(dateColumn, userID string, r model.DateRange) (string, []any) {
	clauses := []string{"r.user_id = ?"}
	args := []any{userID}
	if !r.Start.IsZero() {
		clauses = append(clauses, dateColumn+" >= ?")
		args = append(args, r.Start.UTC())
	}
	if !r.End.IsZero() {
		clauses = append(clauses, dateColumn+" <= ?")
		args = append(args, r.End.UTC())
	}
	return strings.Join(clauses, " AND "), args
}

// maxBoundIDs keeps IN (...) lists well under SQLite's bound parameter limit.
const maxBoundIDs = 500

// chunkIDs splits ids into consecutive batches of at most size.
func chunkIDs(ids []string, size int) [][]string {
	var batches [][]string
	for lo := 0; lo < len(ids); lo += size {
		batches = append(batches, ids[lo:min(lo+size, len(ids))])
	}
	return batches
}

// ReceiptOwners returns the owning user of each of the given receipts that
// exists. Unknown IDs are absent from the map.
func (s *SQLiteStorage) ReceiptOwners(ctx context.Context, receiptIDs []string) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	owners := make(map[string]string, len(receiptIDs))
	for _, batch := range chunkIDs(receiptIDs, maxBoundIDs) {
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT id, user_id
			FROM receipts
			WHERE id IN (`+placeholders(len(args))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query receipt owners: %w", err)
		}
		for rows.Next() {
			var id, userID string
			if err := rows.Scan(&id, &userID); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan receipt owner: %w", err)
			}
			owners[id] = userID
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating receipt owners: %w", err)
		}
	}
	return owners, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
