// Package service defines the interfaces shared between the persistence layer and its consumers.
package service

import (
	"context"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// CategoryStore reads and creates categories.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
}

// ReceiptStore persists receipts together with their line items.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, receipt *model.Receipt) error
	GetReceipt(ctx context.Context, id string) (*model.Receipt, error)
	ListReceipts(ctx context.Context, userID string, dateRange model.DateRange) ([]model.Receipt, error)
	DeleteReceipt(ctx context.Context, id string) error
	ReceiptOwners(ctx context.Context, receiptIDs []string) (map[string]string, error)
}

// AssignmentStore persists category assignments keyed by (receipt, line index).
type AssignmentStore interface {
	UpsertAssignment(ctx context.Context, assignment *model.CategoryAssignment) error
	GetAssignmentsForReceipt(ctx context.Context, receiptID string) ([]model.CategoryAssignment, error)
	GetAssignmentsInRange(ctx context.Context, userID string, dateRange model.DateRange) ([]model.CategoryAssignment, error)
	GetUserHistory(ctx context.Context, userID string, source model.AssignmentSource, limit int) ([]model.HistoricalAssignment, error)
}

// RuleStore persists category rules scoped by owning user.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.CategoryRule) error
	GetRule(ctx context.Context, userID, id string) (*model.CategoryRule, error)
	ListRules(ctx context.Context, userID string) ([]model.CategoryRule, error)
	ListEnabledRules(ctx context.Context, userID string) ([]model.CategoryRule, error)
	SetRuleEnabled(ctx context.Context, userID, id string, enabled bool) error
	DeleteRule(ctx context.Context, userID, id string) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CategoryStore
	ReceiptStore
	AssignmentStore
	RuleStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
