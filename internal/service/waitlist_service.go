package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

type waitlistRepository interface {
	ListOrdered(ctx context.Context) ([]models.WaitlistEntryDetail, error)
	ListForBucket(ctx context.Context, roomType *models.RoomType, floor *int) ([]models.WaitlistEntryDetail, error)
	Compact(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type requestAllocator interface {
	TryAllocate(ctx context.Context, requestID string, opts TryAllocateOptions) (*AllocationOutcome, error)
}

type waitlistMetrics interface {
	ObserveWaitlistPromotion()
	SetWaitlistSize(n int)
}

const waitlistCacheKey = "waitlist:view"

// WaitlistService promotes waiting requests strictly by rank whenever
// capacity frees up.
type WaitlistService struct {
	repo      waitlistRepository
	allocator requestAllocator
	cache     viewCache
	cacheTTL  time.Duration
	metrics   waitlistMetrics
	logger    *zap.Logger
}

// NewWaitlistService constructs WaitlistService.
func NewWaitlistService(repo waitlistRepository, allocator requestAllocator, cache viewCache, cacheTTL time.Duration, metrics waitlistMetrics, logger *zap.Logger) *WaitlistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitlistService{repo: repo, allocator: allocator, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// Reprocess walks the waitlist for the given capacity bucket in rank
// order, promoting entries until the bucket is exhausted again or the
// list empties. Hints narrow the scan after a specific room vacates; nil
// hints sweep everything. Idempotent: with nothing to do it is a no-op.
func (s *WaitlistService) Reprocess(ctx context.Context, roomType *models.RoomType, floor *int) (int, error) {
	entries, err := s.repo.ListForBucket(ctx, roomType, floor)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	if len(entries) == 0 {
		return 0, nil
	}

	promoted := 0
	for _, entry := range entries {
		outcome, err := s.allocator.TryAllocate(ctx, entry.RequestID, TryAllocateOptions{})
		if err != nil {
			// A single bad entry must not stall the rest of the queue.
			s.logger.Warn("waitlist reprocess skipped entry",
				zap.String("request_id", entry.RequestID), zap.Error(err))
			continue
		}
		if outcome.Allocation == nil {
			// Still waitlisted: the bucket is exhausted again.
			break
		}
		promoted++
		if s.metrics != nil {
			s.metrics.ObserveWaitlistPromotion()
		}
	}

	if promoted > 0 {
		if err := s.repo.Compact(ctx); err != nil {
			s.logger.Warn("failed to compact waitlist after reprocess", zap.Error(err))
		}
		s.invalidate(ctx)
		s.logger.Info("waitlist reprocessed", zap.Int("promoted", promoted))
	}
	s.publishSize(ctx)
	return promoted, nil
}

// View returns the ordered waitlist, briefly cached since it is a popular
// read during allocation season.
func (s *WaitlistService) View(ctx context.Context) ([]models.WaitlistEntryDetail, error) {
	if s.cache != nil {
		var hit []models.WaitlistEntryDetail
		if err := s.cache.Get(ctx, waitlistCacheKey, &hit); err == nil {
			return hit, nil
		}
	}

	entries, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, waitlistCacheKey, entries, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache waitlist view", zap.Error(err))
		}
	}
	return entries, nil
}

// Invalidate drops the cached view; called by collaborators that mutate
// waitlist state outside this service.
func (s *WaitlistService) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *WaitlistService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, waitlistCacheKey); err != nil {
		s.logger.Warn("failed to invalidate waitlist cache", zap.Error(err))
	}
}

func (s *WaitlistService) publishSize(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count waitlist", zap.Error(err))
		return
	}
	s.metrics.SetWaitlistSize(count)
}
