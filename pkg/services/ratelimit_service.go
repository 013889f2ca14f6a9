package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/models"
)

// RateLimitService gates premium features for free users: a fixed number of
// calls per UTC day, counted in the fast store. The gate fails closed; if the
// counter backend is unreachable, gated calls are denied rather than given
// away for free.
type RateLimitService struct {
	store  cache.Store
	limit  int
	logger *zap.Logger

	// now is injectable for day-boundary tests.
	now func() time.Time
}

// NewRateLimitService creates the daily gate with the given free-tier limit.
func NewRateLimitService(store cache.Store, limit int, logger *zap.Logger) *RateLimitService {
	return &RateLimitService{
		store:  store,
		limit:  limit,
		logger: logger.Named("rate-limit"),
		now:    time.Now,
	}
}

// usageKey builds the per-user per-UTC-day counter key.
func usageKey(userID string, day time.Time) string {
	return fmt.Sprintf("daily_premium_usage:%s:%s", userID, day.Format("2006-01-02"))
}

// Allow consumes one gated call for the user. Premium and trial users pass
// without touching the counter. Free users increment a counter that expires
// at the next UTC midnight; exceeding the limit returns ErrDailyLimitReached.
//
// The increment happens before the limit check, so a denied call still
// advances the counter. The counter tracks attempts, not grants.
func (s *RateLimitService) Allow(ctx context.Context, user *models.User) error {
	now := s.now().UTC()
	if user.IsPremium(now) {
		return nil
	}

	key := usageKey(user.ID.String(), now)
	count, err := s.store.Incr(ctx, key)
	if err != nil {
		s.logger.Error("usage counter unavailable, denying gated call",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return apperrors.ErrRateLimiterUnavailable
	}

	if count == 1 {
		midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		if err := s.store.Expire(ctx, key, midnight.Sub(now)); err != nil {
			s.logger.Error("failed to arm counter expiry, denying gated call",
				zap.String("key", key),
				zap.Error(err))
			return apperrors.ErrRateLimiterUnavailable
		}
	}

	if count > int64(s.limit) {
		return apperrors.ErrDailyLimitReached
	}
	return nil
}
