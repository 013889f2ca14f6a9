package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/push"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/services"
)

// staleTokenMaxAge is how long a push token may sit unrefreshed before the
// weekly sweep retires it.
const staleTokenMaxAge = 60 * 24 * time.Hour

// WateringSweepTask finds every tracked plant that is due for water and
// schedules a reminder per plant. A plant is due once a full frequency
// period has passed since it was last watered, or since it was added if it
// was never watered. The boundary day counts as due. A plant whose species
// guide has no watering frequency yet is skipped and its guide sent for
// enrichment instead, so the next pass has the real number.
type WateringSweepTask struct {
	Plants repositories.PlantRepository
	Users  repositories.UserRepository
	Sender push.Sender
	Guides *cache.GuideCache
	Logger *zap.Logger

	// Now is injectable for boundary tests. Nil means time.Now.
	Now func() time.Time
}

func (t *WateringSweepTask) ID() string                { return "sweep:watering" }
func (t *WateringSweepTask) Name() string              { return "watering-sweep" }
func (t *WateringSweepTask) UsesGenerativeModel() bool { return false }

func (t *WateringSweepTask) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Due reports whether a plant needs water at the given instant, watering
// every freqDays days.
func Due(plant *models.UserPlant, freqDays int, now time.Time) bool {
	next := plant.WateringReference().Add(time.Duration(freqDays) * 24 * time.Hour)
	return !now.Before(next)
}

func (t *WateringSweepTask) Execute(ctx context.Context, enqueuer TaskEnqueuer) error {
	candidates, err := t.Plants.ListWateringCandidates(ctx)
	if err != nil {
		return fmt.Errorf("listing watering candidates: %w", err)
	}

	now := t.now().UTC()
	day := now.Format("2006-01-02")
	due, missing := 0, 0
	for _, c := range candidates {
		if c.Details == nil || c.Details.WateringFrequencyDays <= 0 {
			missing++
			enqueuer.Enqueue(&EnrichmentTask{
				SpeciesID:      c.Plant.SpeciesID,
				ScientificName: c.ScientificName,
				Guides:         t.Guides,
				Users:          t.Users,
				Sender:         t.Sender,
				Logger:         t.Logger,
			})
			continue
		}
		if !Due(&c.Plant, c.Details.WateringFrequencyDays, now) {
			continue
		}
		due++

		name := c.ScientificName
		if c.Plant.Nickname != nil && *c.Plant.Nickname != "" {
			name = *c.Plant.Nickname
		}

		enqueuer.Enqueue(&NotificationTask{
			Key:   fmt.Sprintf("watering:%s:%s", c.Plant.ID, day),
			Token: c.FCMToken,
			Title: "Hora de regar!",
			Body:  fmt.Sprintf("Sua planta %s está precisando de água.", name),
			Data: map[string]string{
				"type":     "watering_reminder",
				"plant_id": c.Plant.ID.String(),
			},
			Sender: t.Sender,
			Users:  t.Users,
			Logger: t.Logger,
		})
	}

	t.Logger.Info("watering sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("due", due),
		zap.Int("missing_frequency", missing))
	return nil
}

// StaleTokenSweepTask retires push tokens that have not been refreshed in
// two months. The client re-registers its token on every app start, so a
// token this old belongs to a device that stopped opening the app.
type StaleTokenSweepTask struct {
	Users  repositories.UserRepository
	Logger *zap.Logger

	Now func() time.Time
}

func (t *StaleTokenSweepTask) ID() string                { return "sweep:stale-tokens" }
func (t *StaleTokenSweepTask) Name() string              { return "stale-token-sweep" }
func (t *StaleTokenSweepTask) UsesGenerativeModel() bool { return false }

func (t *StaleTokenSweepTask) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *StaleTokenSweepTask) Execute(ctx context.Context, enqueuer TaskEnqueuer) error {
	cutoff := t.now().UTC().Add(-staleTokenMaxAge)
	stale, err := t.Users.ListStaleTokens(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("listing stale tokens: %w", err)
	}

	for _, s := range stale {
		enqueuer.Enqueue(&TokenInvalidationTask{
			Token:  s.Token,
			Users:  t.Users,
			Logger: t.Logger,
		})
	}

	t.Logger.Info("stale token sweep finished", zap.Int("stale", len(stale)))
	return nil
}

// Longevity thresholds, account age and premium tenure alike.
var longevityBadges = []struct {
	age     time.Duration
	account string
	premium string
}{
	{90 * 24 * time.Hour, models.AchievementUser3Months, models.AchievementPremium3Months},
	{180 * 24 * time.Hour, models.AchievementUser6Months, models.AchievementPremium6Months},
	{365 * 24 * time.Hour, models.AchievementUser1Year, models.AchievementPremium1Year},
}

// LongevitySweepTask grants time-based badges: how long the account has
// existed, and how long the user has been premium. Grants are once-ever, so
// re-running the sweep daily is harmless.
type LongevitySweepTask struct {
	Users        repositories.UserRepository
	Achievements *services.AchievementService
	Logger       *zap.Logger

	Now func() time.Time
}

func (t *LongevitySweepTask) ID() string                { return "sweep:longevity" }
func (t *LongevitySweepTask) Name() string              { return "longevity-sweep" }
func (t *LongevitySweepTask) UsesGenerativeModel() bool { return false }

func (t *LongevitySweepTask) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *LongevitySweepTask) Execute(ctx context.Context, _ TaskEnqueuer) error {
	users, err := t.Users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	now := t.now().UTC()
	for _, user := range users {
		var earned []string
		accountAge := now.Sub(user.CreatedAt)
		for _, badge := range longevityBadges {
			if accountAge >= badge.age {
				earned = append(earned, badge.account)
			}
		}

		if user.PremiumSince != nil && user.IsPremium(now) {
			premiumAge := now.Sub(*user.PremiumSince)
			for _, badge := range longevityBadges {
				if premiumAge >= badge.age {
					earned = append(earned, badge.premium)
				}
			}
		}

		if len(earned) > 0 {
			t.Achievements.GrantAll(ctx, user.ID, earned...)
		}
	}

	t.Logger.Info("longevity sweep finished", zap.Int("users", len(users)))
	return nil
}
