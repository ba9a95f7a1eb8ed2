package assign

import (
	"context"
	"log/slog"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

// Notification describes a failed assignment write.
type Notification struct {
	Err        error
	Ref        model.ItemRef
	CategoryID string
	Source     model.AssignmentSource
}

// Notifier receives assignment failures. Implementations must be safe for
// concurrent use; bulk writes notify from several goroutines.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier reports failures through slog.
type LogNotifier struct{}

// Notify logs the failure at warn level.
func (LogNotifier) Notify(ctx context.Context, n Notification) {
	slog.WarnContext(ctx, "Failed to save category assignment",
		"receipt_id", n.Ref.ReceiptID,
		"line_index", n.Ref.Index,
		"category_id", n.CategoryID,
		"source", n.Source,
		"error", n.Err)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}
