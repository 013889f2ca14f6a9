package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/repositories"
)

// AchievementService grants achievements at most once per user and lists a
// user's earned set. Grants are side effects of other flows; a grant failure
// must never fail the flow that triggered it, so callers treat errors here
// as advisory.
type AchievementService struct {
	achievements repositories.AchievementRepository
	pool         *pgxpool.Pool
	logger       *zap.Logger
}

// NewAchievementService creates a new achievement service. pool may be nil;
// without it GrantAll writes each grant on its own connection instead of in
// one transaction.
func NewAchievementService(achievements repositories.AchievementRepository, pool *pgxpool.Pool, logger *zap.Logger) *AchievementService {
	return &AchievementService{
		achievements: achievements,
		pool:         pool,
		logger:       logger.Named("achievements"),
	}
}

// GrantIfAbsent awards the achievement to the user unless they already hold
// it. Returns true only when this call created the grant. An unknown key is
// logged and swallowed; the triggering flow should not care that a badge
// misfired. q may be a transaction so the grant commits atomically with the
// action that earned it, or nil for a standalone write.
func (s *AchievementService) GrantIfAbsent(ctx context.Context, q repositories.Querier, userID uuid.UUID, key string) bool {
	if !models.IsKnownAchievement(key) {
		s.logger.Warn("ignoring grant for unknown achievement",
			zap.String("achievement", key),
			zap.String("user_id", userID.String()))
		return false
	}

	granted, err := s.achievements.Insert(ctx, q, userID, key)
	if err != nil {
		s.logger.Error("achievement grant failed",
			zap.String("achievement", key),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return false
	}

	if granted {
		s.logger.Info("achievement granted",
			zap.String("achievement", key),
			zap.String("user_id", userID.String()))
	}
	return granted
}

// GrantAll awards several achievements to the user at once. When the service
// has a pool the grants share a transaction, so a flow that earns more than
// one badge records all of them or none. Like GrantIfAbsent, failures are
// logged and swallowed.
func (s *AchievementService) GrantAll(ctx context.Context, userID uuid.UUID, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if s.pool == nil {
		for _, key := range keys {
			s.GrantIfAbsent(ctx, nil, userID, key)
		}
		return
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Warn("could not open grant transaction, granting individually",
			zap.Error(err))
		for _, key := range keys {
			s.GrantIfAbsent(ctx, nil, userID, key)
		}
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, key := range keys {
		s.GrantIfAbsent(ctx, tx, userID, key)
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("grant transaction failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// ListForUser returns every achievement the user has earned, oldest first.
func (s *AchievementService) ListForUser(ctx context.Context, userID uuid.UUID) ([]repositories.AchievementGrant, error) {
	return s.achievements.ListByUser(ctx, userID)
}
