// Package assign writes and reads category assignments on behalf of callers
// that must not fail hard on persistence errors.
package assign

//go:generate mockgen -source=service.go -destination=store_mock.go -package=assign

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
)

// Store is the persistence the service writes through.
type Store interface {
	UpsertAssignment(ctx context.Context, assignment *model.CategoryAssignment) error
	GetAssignmentsForReceipt(ctx context.Context, receiptID string) ([]model.CategoryAssignment, error)
	ReceiptOwners(ctx context.Context, receiptIDs []string) (map[string]string, error)
}

// Service applies category assignments. Writes report success as a bool and
// route failures to the Notifier; reads degrade to empty results.
type Service struct {
	store        Store
	notifier     Notifier
	entitlements Entitlements
	metrics      *metrics.Recorder
	limiter      *rate.Limiter
	thresholds   policy.Thresholds
	bulk         BulkConfig
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the failure side channel.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithEntitlements sets the gate consulted before bulk operations.
func WithEntitlements(e Entitlements) Option {
	return func(s *Service) { s.entitlements = e }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithThresholds overrides the policy thresholds.
func WithThresholds(t policy.Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithBulkConfig overrides the bulk fan-out settings.
func WithBulkConfig(c BulkConfig) Option {
	return func(s *Service) { s.bulk = c }
}

// NewService creates an assignment service. Without options it logs failures,
// allows bulk operations and uses the default thresholds.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		notifier:     LogNotifier{},
		entitlements: AllowAll{},
		thresholds:   policy.Defaults(),
		bulk:         DefaultBulkConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bulk = s.bulk.normalized()
	s.limiter = rate.NewLimiter(rate.Limit(s.bulk.RatePerSecond), s.bulk.Workers)
	return s
}

// UpsertAssignment writes the category for one line item, replacing any
// previous assignment for it. User assignments always carry full confidence;
// other sources store the confidence given, which may be nil. A failed write
// returns false after notifying; it is not retried.
func (s *Service) UpsertAssignment(ctx context.Context, ref model.ItemRef, categoryID string, source model.AssignmentSource, confidence *float64) bool {
	assignment := &model.CategoryAssignment{
		ReceiptID:     ref.ReceiptID,
		LineItemIndex: ref.Index,
		CategoryID:    categoryID,
		Source:        source,
		Confidence:    confidence,
	}
	if source == model.SourceUser {
		full := s.thresholds.UserConfidence
		assignment.Confidence = &full
	}

	if err := s.store.UpsertAssignment(ctx, assignment); err != nil {
		s.metrics.AssignmentWrite(string(source), false)
		s.notifier.Notify(ctx, Notification{
			Ref:        ref,
			CategoryID: categoryID,
			Source:     source,
			Err:        err,
		})
		return false
	}

	s.metrics.AssignmentWrite(string(source), true)
	return true
}

// GetAssignmentsForReceipt returns the receipt's assignments ordered by line
// index. Read failures are logged and yield an empty list.
func (s *Service) GetAssignmentsForReceipt(ctx context.Context, receiptID string) []model.CategoryAssignment {
	assignments, err := s.store.GetAssignmentsForReceipt(ctx, receiptID)
	if err != nil {
		common.LogError(ctx, err, "failed to read assignments, treating receipt as unassigned",
			common.Fields{"receipt_id": receiptID})
		return []model.CategoryAssignment{}
	}
	if assignments == nil {
		return []model.CategoryAssignment{}
	}

	slog.Debug("loaded assignments", "receipt_id", receiptID, "count", len(assignments))
	return assignments
}
