// Package testutil provides a migrated SQLite database and receipt fixtures
// for tests that exercise several packages together.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
)

// DefaultUser owns fixtures unless a test says otherwise.
const DefaultUser = "user-1"

// TestDB is a migrated database seeded with the system categories.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          testing.TB
	Categories []model.Category
}

// TestDBOptions customizes SetupTestDBWithOptions.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	// Categories are created in addition to the seeded system categories.
	Categories []model.Category
}

// SetupTestDB creates a fresh database under t.TempDir and closes it on cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	receipt := db.MustSaveReceipt(testutil.NewReceipt("Corner Market").WithItem("Milk", 3.49).Build())
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t testing.TB, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "receipts.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range opts.Categories {
		if err := store.CreateCategory(ctx, &opts.Categories[i]); err != nil {
			t.Fatalf("failed to seed category %q: %v", opts.Categories[i].Name, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("failed to load categories: %v", err)
	}

	return &TestDB{
		Storage:    store,
		Categories: categories,
		t:          t,
	}
}

// MustGetCategory returns the category with the given slug or fails the test.
// System categories win over user categories sharing a slug.
func (db *TestDB) MustGetCategory(slug string) model.Category {
	db.t.Helper()
	category, err := db.Storage.GetCategoryBySlug(context.Background(), slug)
	if err != nil {
		db.t.Fatalf("category %q: %v", slug, err)
	}
	return *category
}

// MustSaveReceipt stores receipt and returns it with its ID set.
func (db *TestDB) MustSaveReceipt(receipt *model.Receipt) *model.Receipt {
	db.t.Helper()
	if err := db.Storage.SaveReceipt(context.Background(), receipt); err != nil {
		db.t.Fatalf("failed to save receipt: %v", err)
	}
	return receipt
}

// MustAssign upserts an assignment for one line item.
func (db *TestDB) MustAssign(ref model.ItemRef, categoryID string, source model.AssignmentSource, confidence *float64) {
	db.t.Helper()
	err := db.Storage.UpsertAssignment(context.Background(), &model.CategoryAssignment{
		ReceiptID:     ref.ReceiptID,
		LineItemIndex: ref.Index,
		CategoryID:    categoryID,
		Source:        source,
		Confidence:    confidence,
	})
	if err != nil {
		db.t.Fatalf("failed to assign %v: %v", ref, err)
	}
}

// ReceiptBuilder assembles receipts for tests.
type ReceiptBuilder struct {
	receipt model.Receipt
}

// NewReceipt starts a receipt from storeName owned by DefaultUser, dated
// 1 March 2024 UTC.
func NewReceipt(storeName string) *ReceiptBuilder {
	return &ReceiptBuilder{receipt: model.Receipt{
		UserID:    DefaultUser,
		StoreName: storeName,
		Date:      time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}}
}

// ForUser sets the owner.
func (b *ReceiptBuilder) ForUser(userID string) *ReceiptBuilder {
	b.receipt.UserID = userID
	return b
}

// On sets the receipt date.
func (b *ReceiptBuilder) On(date time.Time) *ReceiptBuilder {
	b.receipt.Date = date
	return b
}

// WithItem appends a single-quantity line item.
func (b *ReceiptBuilder) WithItem(description string, total float64) *ReceiptBuilder {
	b.receipt.Items = append(b.receipt.Items, model.LineItem{
		Index:       len(b.receipt.Items),
		Description: description,
		Quantity:    1,
		UnitPrice:   total,
		Total:       total,
	})
	return b
}

// WithRandomItems appends n items with fake product names and prices.
func (b *ReceiptBuilder) WithRandomItems(faker *gofakeit.Faker, n int) *ReceiptBuilder {
	for i := 0; i < n; i++ {
		b.WithItem(faker.ProductName(), faker.Price(0.5, 150))
	}
	return b
}

// Build returns the receipt with Subtotal and Total summed from its items.
func (b *ReceiptBuilder) Build() *model.Receipt {
	r := b.receipt
	r.Items = append([]model.LineItem(nil), b.receipt.Items...)
	r.Subtotal = 0
	for _, item := range r.Items {
		r.Subtotal += item.Total
	}
	r.Total = r.Subtotal
	return &r
}
