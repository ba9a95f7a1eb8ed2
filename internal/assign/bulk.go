package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

var (
	// ErrNoCategory is returned by BulkCategorize when no target category is given.
	ErrNoCategory = errors.New("target category is required")
	// ErrNotOwner marks a bulk ref whose receipt belongs to another user or
	// does not exist.
	ErrNotOwner = errors.New("receipt does not belong to user")
)

// Entitlements decides whether a user may run gated operations.
type Entitlements interface {
	CanBulkCategorize(ctx context.Context, userID string) bool
}

// AllowAll permits everything.
type AllowAll struct{}

// CanBulkCategorize always returns true.
func (AllowAll) CanBulkCategorize(context.Context, string) bool { return true }

// BulkConfig bounds the fan-out of bulk writes.
type BulkConfig struct {
	ChunkSize     int     `mapstructure:"chunk_size"`
	Workers       int     `mapstructure:"workers"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// DefaultBulkConfig returns sensible defaults.
func DefaultBulkConfig() BulkConfig {
	return BulkConfig{
		ChunkSize:     50,
		Workers:       4,
		RatePerSecond: 20,
	}
}

func (c BulkConfig) normalized() BulkConfig {
	d := DefaultBulkConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = d.RatePerSecond
	}
	return c
}

// BulkResult reports a bulk categorize run. Failed is in input order.
type BulkResult struct {
	Failed    []model.ItemRef
	Attempted int
	Succeeded int
}

// ProgressFunc is called after each item with the number of items finished.
type ProgressFunc func(done int)

// BulkCategorize assigns categoryID with source user to every referenced line
// item. Each write stands alone: failures are collected, not rolled back.
// Duplicate refs are written once, and refs on receipts the user does not own
// fail without a write. Writes already issued are not cancelled when ctx is;
// the run always completes. Without a user there is nothing to do and the
// result is empty.
func (s *Service) BulkCategorize(ctx context.Context, userID string, refs []model.ItemRef, categoryID string, progress ProgressFunc) (BulkResult, error) {
	if strings.TrimSpace(userID) == "" {
		slog.Debug("bulk categorize without user, nothing to do")
		return BulkResult{}, nil
	}
	if strings.TrimSpace(categoryID) == "" {
		return BulkResult{}, ErrNoCategory
	}
	if !s.entitlements.CanBulkCategorize(ctx, userID) {
		return BulkResult{}, fmt.Errorf("bulk categorize: %w", common.ErrNotEntitled)
	}

	refs = uniqueRefs(refs)
	if len(refs) == 0 {
		return BulkResult{}, nil
	}

	start := time.Now()
	writeCtx := context.WithoutCancel(ctx)
	ok := make([]bool, len(refs))
	owned := s.ownedPositions(writeCtx, userID, refs, categoryID)

	chunks := make(chan []int, (len(owned)+s.bulk.ChunkSize-1)/s.bulk.ChunkSize)
	for lo := 0; lo < len(owned); lo += s.bulk.ChunkSize {
		chunks <- owned[lo:min(lo+s.bulk.ChunkSize, len(owned))]
	}
	close(chunks)

	var mu sync.Mutex
	done := 0
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress != nil {
			progress(done)
		}
	}

	// Rejected refs are finished before any write starts.
	for range len(refs) - len(owned) {
		report()
	}

	workers := min(s.bulk.Workers, cap(chunks))
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for chunk := range chunks {
				slog.Debug("bulk worker processing chunk",
					"worker_id", workerID,
					"chunk_size", len(chunk))
				for _, i := range chunk {
					ok[i] = s.bulkWrite(writeCtx, refs[i], categoryID)
					report()
				}
			}
		}(w)
	}
	wg.Wait()

	result := BulkResult{Attempted: len(refs)}
	for i, success := range ok {
		if success {
			result.Succeeded++
			continue
		}
		result.Failed = append(result.Failed, refs[i])
	}

	s.metrics.BulkCompleted(result.Succeeded, len(result.Failed), time.Since(start))
	slog.Info("Bulk categorize finished",
		"user_id", userID,
		"category_id", categoryID,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", len(result.Failed))
	return result, nil
}

// ownedPositions returns the positions in refs whose receipt belongs to
// userID. Every other ref is reported to the notifier; when ownership cannot
// be checked at all, every ref is.
func (s *Service) ownedPositions(ctx context.Context, userID string, refs []model.ItemRef, categoryID string) []int {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		if _, ok := seen[r.ReceiptID]; !ok {
			seen[r.ReceiptID] = struct{}{}
			ids = append(ids, r.ReceiptID)
		}
	}

	owners, err := s.store.ReceiptOwners(ctx, ids)
	if err != nil {
		err = fmt.Errorf("failed to check receipt ownership: %w", err)
	}

	positions := make([]int, 0, len(refs))
	for i, r := range refs {
		reason := err
		if reason == nil && owners[r.ReceiptID] != userID {
			reason = fmt.Errorf("%w: receipt %s", ErrNotOwner, r.ReceiptID)
		}
		if reason == nil {
			positions = append(positions, i)
			continue
		}
		s.metrics.AssignmentWrite(string(model.SourceUser), false)
		s.notifier.Notify(ctx, Notification{
			Ref:        r,
			CategoryID: categoryID,
			Source:     model.SourceUser,
			Err:        reason,
		})
	}
	return positions
}

func (s *Service) bulkWrite(ctx context.Context, ref model.ItemRef, categoryID string) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		s.notifier.Notify(ctx, Notification{
			Ref:        ref,
			CategoryID: categoryID,
			Source:     model.SourceUser,
			Err:        fmt.Errorf("rate limiter: %w", err),
		})
		return false
	}
	return s.UpsertAssignment(ctx, ref, categoryID, model.SourceUser, nil)
}

func uniqueRefs(refs []model.ItemRef) []model.ItemRef {
	seen := make(map[model.ItemRef]struct{}, len(refs))
	out := make([]model.ItemRef, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
