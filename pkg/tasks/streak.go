package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/services"
)

// Streak badge thresholds, in consecutive waterings.
var streakBadges = []struct {
	count int
	key   string
}{
	{30, models.AchievementStreak1Month},
	{90, models.AchievementStreak3Months},
	{180, models.AchievementStreak6Months},
	{365, models.AchievementStreak1Year},
}

// StreakUpdateTask bumps the user's watering streak and awards whatever
// streak badges the new count has reached. Every watering event gets its
// own task instance; the random ID suffix keeps rapid successive waterings
// from collapsing into one increment.
type StreakUpdateTask struct {
	UserID uuid.UUID

	Users        repositories.UserRepository
	Achievements *services.AchievementService
	Logger       *zap.Logger

	nonce string
}

// NewStreakUpdateTask creates a streak update for one watering event.
func NewStreakUpdateTask(userID uuid.UUID, users repositories.UserRepository, achievements *services.AchievementService, logger *zap.Logger) *StreakUpdateTask {
	return &StreakUpdateTask{
		UserID:       userID,
		Users:        users,
		Achievements: achievements,
		Logger:       logger,
		nonce:        uuid.NewString(),
	}
}

func (t *StreakUpdateTask) ID() string                { return "streak:" + t.UserID.String() + ":" + t.nonce }
func (t *StreakUpdateTask) Name() string              { return "streak-update" }
func (t *StreakUpdateTask) UsesGenerativeModel() bool { return false }

func (t *StreakUpdateTask) Execute(ctx context.Context, _ TaskEnqueuer) error {
	streak, err := t.Users.IncrementWateringStreak(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("incrementing streak: %w", err)
	}

	var earned []string
	for _, badge := range streakBadges {
		if streak >= badge.count {
			earned = append(earned, badge.key)
		}
	}
	if len(earned) > 0 {
		t.Achievements.GrantAll(ctx, t.UserID, earned...)
	}

	t.Logger.Debug("streak updated",
		zap.String("user_id", t.UserID.String()),
		zap.Int("streak", streak))
	return nil
}
