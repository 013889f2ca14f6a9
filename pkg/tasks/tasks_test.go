package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/push"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/services"
)

// recordingEnqueuer captures scheduled follow-up tasks.
type recordingEnqueuer struct {
	tasks []Task
}

func (r *recordingEnqueuer) Enqueue(task Task)                       { r.tasks = append(r.tasks, task) }
func (r *recordingEnqueuer) EnqueueAfter(task Task, _ time.Duration) { r.tasks = append(r.tasks, task) }

func TestEnrichmentTask_FillsMissingPayloads(t *testing.T) {
	guides := &repositories.MockGuideRepository{}
	enricher := enrich.NewMockClient()
	guideCache := cache.NewGuideCache(cache.NewMemoryStore(), guides, enricher, zap.NewNop())

	task := &EnrichmentTask{
		SpeciesID:      "sp-1",
		ScientificName: "Ficus lyrata",
		Guides:         guideCache,
		Logger:         zap.NewNop(),
	}

	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	assert.Equal(t, 1, guides.UpdateEnrichmentCalls)
}

func TestEnrichmentTask_IdempotentOnCompletedGuide(t *testing.T) {
	now := time.Now().UTC()
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return &models.PlantGuide{
				SpeciesID: speciesID, ScientificName: "Ficus lyrata",
				Details:        &models.PlantDetails{Description: "x", PopularNames: []string{"fig"}, WateringFrequencyDays: 5},
				Nutritional:    &models.NutritionalInfo{Recipe: models.FoodRecipe{Name: "chá"}},
				LastEnrichedAt: &now,
			}, nil
		},
	}
	enricher := enrich.NewMockClient()
	guideCache := cache.NewGuideCache(cache.NewMemoryStore(), guides, enricher, zap.NewNop())

	task := &EnrichmentTask{SpeciesID: "sp-1", ScientificName: "Ficus lyrata", Guides: guideCache, Logger: zap.NewNop()}

	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	assert.Equal(t, 0, enricher.PlantDetailsCalls)
	assert.Equal(t, 0, guides.UpdateEnrichmentCalls)
}

func TestEnrichmentTask_NotifiesRequestingUser(t *testing.T) {
	userID := uuid.New()
	guideCache := cache.NewGuideCache(cache.NewMemoryStore(),
		&repositories.MockGuideRepository{}, enrich.NewMockClient(), zap.NewNop())
	users := &repositories.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, FCMToken: ptr("tok-9")}, nil
		},
	}

	var granted []string
	grants := &repositories.MockAchievementRepository{
		InsertFunc: func(ctx context.Context, q repositories.Querier, id uuid.UUID, key string) (bool, error) {
			granted = append(granted, key)
			return true, nil
		},
	}

	enqueuer := &recordingEnqueuer{}
	task := &EnrichmentTask{
		SpeciesID:      "sp-1",
		ScientificName: "Ficus lyrata",
		NotifyUserID:   userID,
		Guides:         guideCache,
		Users:          users,
		Achievements:   services.NewAchievementService(grants, nil, zap.NewNop()),
		Sender:         &push.MockSender{},
		Logger:         zap.NewNop(),
	}

	require.NoError(t, task.Execute(context.Background(), enqueuer))

	assert.Equal(t, []string{models.AchievementFirstDeepAnalysis}, granted)
	require.Len(t, enqueuer.tasks, 1)
	notification, ok := enqueuer.tasks[0].(*NotificationTask)
	require.True(t, ok)
	assert.Equal(t, "tok-9", notification.Token)
	assert.Contains(t, notification.Body, "Ficus lyrata")
	assert.Equal(t, "guide_enriched", notification.Data["type"])
}

func TestEnrichmentTask_AlreadyEnrichedSkipsNotification(t *testing.T) {
	now := time.Now().UTC()
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return &models.PlantGuide{
				SpeciesID: speciesID, ScientificName: "Ficus lyrata",
				Details:        &models.PlantDetails{Description: "x", PopularNames: []string{"fig"}, WateringFrequencyDays: 5},
				Nutritional:    &models.NutritionalInfo{Recipe: models.FoodRecipe{Name: "chá"}},
				LastEnrichedAt: &now,
			}, nil
		},
	}
	guideCache := cache.NewGuideCache(cache.NewMemoryStore(), guides, enrich.NewMockClient(), zap.NewNop())

	grants := &repositories.MockAchievementRepository{}
	enqueuer := &recordingEnqueuer{}
	task := &EnrichmentTask{
		SpeciesID:      "sp-1",
		ScientificName: "Ficus lyrata",
		NotifyUserID:   uuid.New(),
		Guides:         guideCache,
		Users:          &repositories.MockUserRepository{},
		Achievements:   services.NewAchievementService(grants, nil, zap.NewNop()),
		Sender:         &push.MockSender{},
		Logger:         zap.NewNop(),
	}

	// Nothing changed, so nobody is congratulated for it.
	require.NoError(t, task.Execute(context.Background(), enqueuer))
	assert.Equal(t, 0, grants.InsertCalls)
	assert.Empty(t, enqueuer.tasks)
}

func TestHealthEnrichmentTask_StoresTreatment(t *testing.T) {
	var stored *models.DiseaseInfo
	guides := &repositories.MockGuideRepository{
		UpdateHealthFunc: func(ctx context.Context, speciesID string, health *models.DiseaseInfo) error {
			stored = health
			return nil
		},
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return &models.PlantGuide{SpeciesID: speciesID}, nil
		},
	}
	guideCache := cache.NewGuideCache(cache.NewMemoryStore(), guides, enrich.NewMockClient(), zap.NewNop())

	task := &HealthEnrichmentTask{
		SpeciesID:      "sp-1",
		ScientificName: "Ficus lyrata",
		DiseaseName:    "leaf rust",
		Enricher:       enrich.NewMockClient(),
		Guides:         guideCache,
		Logger:         zap.NewNop(),
	}

	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	require.NotNil(t, stored)
	assert.Equal(t, "leaf rust", stored.DiseaseName)
}

func TestHealthEnrichmentTask_SameDiseaseIsNoop(t *testing.T) {
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return &models.PlantGuide{
				SpeciesID: speciesID, ScientificName: "Ficus lyrata",
				Health: &models.DiseaseInfo{DiseaseName: "leaf rust"},
			}, nil
		},
	}
	enricher := enrich.NewMockClient()
	guideCache := cache.NewGuideCache(cache.NewMemoryStore(), guides, enricher, zap.NewNop())

	task := &HealthEnrichmentTask{
		SpeciesID:      "sp-1",
		ScientificName: "Ficus lyrata",
		DiseaseName:    "leaf rust",
		Enricher:       enricher,
		Guides:         guideCache,
		Logger:         zap.NewNop(),
	}

	// Same disease diagnosed again: no fresh generation, no rewrite.
	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	assert.Equal(t, 0, enricher.DiseaseTreatmentCalls)
	assert.Equal(t, 0, guides.UpdateHealthCalls)
}

func TestNotificationTask_Delivers(t *testing.T) {
	sender := &push.MockSender{}
	task := &NotificationTask{
		Key:    "watering:p1:2026-03-10",
		Token:  "tok-1",
		Title:  "Hora de regar!",
		Body:   "Sua planta precisa de água.",
		Sender: sender,
		Users:  &repositories.MockUserRepository{},
		Logger: zap.NewNop(),
	}

	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	require.Len(t, sender.Sent, 1)
	assert.Equal(t, "tok-1", sender.Sent[0].Token)
}

func TestNotificationTask_UnregisteredTokenSchedulesInvalidation(t *testing.T) {
	sender := &push.MockSender{
		SendFunc: func(ctx context.Context, n push.Notification) error {
			return apperrors.ErrTokenUnregistered
		},
	}
	enqueuer := &recordingEnqueuer{}
	task := &NotificationTask{
		Key:    "k1",
		Token:  "dead-token",
		Sender: sender,
		Users:  &repositories.MockUserRepository{},
		Logger: zap.NewNop(),
	}

	// Handled, not failed: no retry of a delivery that can never succeed.
	require.NoError(t, task.Execute(context.Background(), enqueuer))
	require.Len(t, enqueuer.tasks, 1)
	invalidation, ok := enqueuer.tasks[0].(*TokenInvalidationTask)
	require.True(t, ok)
	assert.Equal(t, "dead-token", invalidation.Token)
}

func TestNotificationTask_TransientErrorPropagates(t *testing.T) {
	sender := &push.MockSender{
		SendFunc: func(ctx context.Context, n push.Notification) error {
			return errors.New("unavailable")
		},
	}
	task := &NotificationTask{Key: "k1", Token: "tok", Sender: sender, Users: &repositories.MockUserRepository{}, Logger: zap.NewNop()}

	err := task.Execute(context.Background(), &recordingEnqueuer{})
	assert.Error(t, err)
}

func TestTokenInvalidationTask_ClearsMatchingToken(t *testing.T) {
	var clearedToken string
	users := &repositories.MockUserRepository{
		ClearFCMTokenIfMatchesFunc: func(ctx context.Context, token string) (bool, error) {
			clearedToken = token
			return true, nil
		},
	}
	task := &TokenInvalidationTask{Token: "dead-token", Users: users, Logger: zap.NewNop()}

	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
	assert.Equal(t, "dead-token", clearedToken)
}

func TestTokenInvalidationTask_ReplacedTokenIsNoop(t *testing.T) {
	users := &repositories.MockUserRepository{
		ClearFCMTokenIfMatchesFunc: func(ctx context.Context, token string) (bool, error) {
			return false, nil
		},
	}
	task := &TokenInvalidationTask{Token: "old-token", Users: users, Logger: zap.NewNop()}

	assert.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))
}

func TestDue(t *testing.T) {
	added := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		plant models.UserPlant
		freq  int
		now   time.Time
		want  bool
	}{
		{
			name:  "day six not due",
			plant: models.UserPlant{AddedAt: added},
			freq:  7,
			now:   added.Add(6 * 24 * time.Hour),
			want:  false,
		},
		{
			name:  "day seven exactly due",
			plant: models.UserPlant{AddedAt: added},
			freq:  7,
			now:   added.Add(7 * 24 * time.Hour),
			want:  true,
		},
		{
			name:  "overdue",
			plant: models.UserPlant{AddedAt: added},
			freq:  7,
			now:   added.Add(9 * 24 * time.Hour),
			want:  true,
		},
		{
			name:  "last watered resets the clock",
			plant: models.UserPlant{AddedAt: added, LastWatered: ptr(added.Add(5 * 24 * time.Hour))},
			freq:  7,
			now:   added.Add(8 * 24 * time.Hour),
			want:  false,
		},
		{
			name:  "thirsty species on a short cycle",
			plant: models.UserPlant{AddedAt: added},
			freq:  2,
			now:   added.Add(2 * 24 * time.Hour),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Due(&tt.plant, tt.freq, tt.now))
		})
	}
}

func TestWateringSweep_NotifiesOnlyDuePlants(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	userID := uuid.New()
	duePlant := models.UserPlant{ID: uuid.New(), AddedAt: now.Add(-8 * 24 * time.Hour)}
	freshPlant := models.UserPlant{ID: uuid.New(), AddedAt: now.Add(-2 * 24 * time.Hour)}

	plants := &repositories.MockPlantRepository{
		ListWateringCandidatesFunc: func(ctx context.Context) ([]repositories.WateringCandidate, error) {
			return []repositories.WateringCandidate{
				{Plant: duePlant, UserID: userID, FCMToken: "tok-1", ScientificName: "Ficus lyrata",
					Details: &models.PlantDetails{WateringFrequencyDays: 7}},
				{Plant: freshPlant, UserID: userID, FCMToken: "tok-1", ScientificName: "Monstera deliciosa",
					Details: &models.PlantDetails{WateringFrequencyDays: 7}},
			}, nil
		},
	}

	enqueuer := &recordingEnqueuer{}
	sweep := &WateringSweepTask{
		Plants: plants,
		Users:  &repositories.MockUserRepository{},
		Sender: &push.MockSender{},
		Logger: zap.NewNop(),
		Now:    func() time.Time { return now },
	}

	require.NoError(t, sweep.Execute(context.Background(), enqueuer))
	require.Len(t, enqueuer.tasks, 1)

	notification, ok := enqueuer.tasks[0].(*NotificationTask)
	require.True(t, ok)
	assert.Equal(t, "tok-1", notification.Token)
	assert.Contains(t, notification.Body, "Ficus lyrata")
	// Same plant, same day, same task ID: re-running the sweep cannot
	// double-notify while the first delivery is in flight.
	assert.Contains(t, notification.ID(), duePlant.ID.String())
	assert.Contains(t, notification.ID(), "2026-03-10")
}

func TestWateringSweep_PrefersNickname(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	plant := models.UserPlant{ID: uuid.New(), AddedAt: now.Add(-10 * 24 * time.Hour), Nickname: ptr("Jorge")}

	plants := &repositories.MockPlantRepository{
		ListWateringCandidatesFunc: func(ctx context.Context) ([]repositories.WateringCandidate, error) {
			return []repositories.WateringCandidate{
				{Plant: plant, UserID: uuid.New(), FCMToken: "tok", ScientificName: "Ficus lyrata",
					Details: &models.PlantDetails{WateringFrequencyDays: 7}},
			}, nil
		},
	}

	enqueuer := &recordingEnqueuer{}
	sweep := &WateringSweepTask{
		Plants: plants, Users: &repositories.MockUserRepository{}, Sender: &push.MockSender{},
		Logger: zap.NewNop(), Now: func() time.Time { return now },
	}

	require.NoError(t, sweep.Execute(context.Background(), enqueuer))
	require.Len(t, enqueuer.tasks, 1)
	assert.Contains(t, enqueuer.tasks[0].(*NotificationTask).Body, "Jorge")
}

func TestWateringSweep_MissingFrequencySchedulesEnrichment(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	plant := models.UserPlant{ID: uuid.New(), SpeciesID: "sp-1", AddedAt: now.Add(-30 * 24 * time.Hour)}

	plants := &repositories.MockPlantRepository{
		ListWateringCandidatesFunc: func(ctx context.Context) ([]repositories.WateringCandidate, error) {
			return []repositories.WateringCandidate{
				{Plant: plant, UserID: uuid.New(), FCMToken: "tok", ScientificName: "Ficus lyrata"},
			}, nil
		},
	}

	enqueuer := &recordingEnqueuer{}
	sweep := &WateringSweepTask{
		Plants: plants, Users: &repositories.MockUserRepository{}, Sender: &push.MockSender{},
		Guides: cache.NewGuideCache(cache.NewMemoryStore(),
			&repositories.MockGuideRepository{}, enrich.NewMockClient(), zap.NewNop()),
		Logger: zap.NewNop(), Now: func() time.Time { return now },
	}

	// A guide with no watering cadence cannot say the plant is thirsty.
	// Repair the guide instead of guessing a schedule.
	require.NoError(t, sweep.Execute(context.Background(), enqueuer))
	require.Len(t, enqueuer.tasks, 1)
	enrichment, ok := enqueuer.tasks[0].(*EnrichmentTask)
	require.True(t, ok)
	assert.Equal(t, plant.SpeciesID, enrichment.SpeciesID)
	assert.Equal(t, uuid.Nil, enrichment.NotifyUserID)
}

func TestStaleTokenSweep_SchedulesInvalidations(t *testing.T) {
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	users := &repositories.MockUserRepository{
		ListStaleTokensFunc: func(ctx context.Context, cutoff time.Time) ([]repositories.StaleToken, error) {
			gotCutoff = cutoff
			return []repositories.StaleToken{
				{UserID: uuid.New(), Token: "old-1"},
				{UserID: uuid.New(), Token: "old-2"},
			}, nil
		},
	}

	enqueuer := &recordingEnqueuer{}
	sweep := &StaleTokenSweepTask{Users: users, Logger: zap.NewNop(), Now: func() time.Time { return now }}

	require.NoError(t, sweep.Execute(context.Background(), enqueuer))
	// Tokens go stale after two months without a refresh.
	assert.Equal(t, now.Add(-60*24*time.Hour), gotCutoff)
	require.Len(t, enqueuer.tasks, 2)
	assert.Equal(t, "old-1", enqueuer.tasks[0].(*TokenInvalidationTask).Token)
}

func TestLongevitySweep_GrantsAgeBadges(t *testing.T) {
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	premiumSince := now.Add(-100 * 24 * time.Hour)
	users := &repositories.MockUserRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.User, error) {
			return []*models.User{
				{ID: uuid.New(), CreatedAt: now.Add(-400 * 24 * time.Hour),
					SubscriptionStatus: models.SubscriptionPremium, PremiumSince: &premiumSince},
				{ID: uuid.New(), CreatedAt: now.Add(-10 * 24 * time.Hour),
					SubscriptionStatus: models.SubscriptionFree},
			}, nil
		},
	}

	var granted []string
	grants := &repositories.MockAchievementRepository{
		InsertFunc: func(ctx context.Context, q repositories.Querier, userID uuid.UUID, key string) (bool, error) {
			granted = append(granted, key)
			return true, nil
		},
	}
	achievements := services.NewAchievementService(grants, nil, zap.NewNop())

	sweep := &LongevitySweepTask{Users: users, Achievements: achievements, Logger: zap.NewNop(),
		Now: func() time.Time { return now }}

	require.NoError(t, sweep.Execute(context.Background(), &recordingEnqueuer{}))

	// Veteran premium user gets all account badges plus the 3-month premium badge.
	assert.ElementsMatch(t, []string{
		models.AchievementUser3Months,
		models.AchievementUser6Months,
		models.AchievementUser1Year,
		models.AchievementPremium3Months,
	}, granted)
}

func TestLongevitySweep_SurvivesGrantFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	users := &repositories.MockUserRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.User, error) {
			return []*models.User{
				{ID: uuid.New(), CreatedAt: now.Add(-100 * 24 * time.Hour),
					SubscriptionStatus: models.SubscriptionFree},
				{ID: uuid.New(), CreatedAt: now.Add(-100 * 24 * time.Hour),
					SubscriptionStatus: models.SubscriptionFree},
			}, nil
		},
	}

	calls := 0
	grants := &repositories.MockAchievementRepository{
		InsertFunc: func(ctx context.Context, q repositories.Querier, userID uuid.UUID, key string) (bool, error) {
			calls++
			if calls == 1 {
				return false, errors.New("connection reset")
			}
			return true, nil
		},
	}
	achievements := services.NewAchievementService(grants, nil, zap.NewNop())

	sweep := &LongevitySweepTask{Users: users, Achievements: achievements, Logger: zap.NewNop(),
		Now: func() time.Time { return now }}

	// The first grant failing must not stop the second user's pass.
	require.NoError(t, sweep.Execute(context.Background(), &recordingEnqueuer{}))
	assert.Equal(t, 2, calls)
}

func TestStreakUpdateTask_GrantsThresholdBadges(t *testing.T) {
	userID := uuid.New()
	users := &repositories.MockUserRepository{
		IncrementWateringStreakFunc: func(ctx context.Context, id uuid.UUID) (int, error) {
			return 90, nil
		},
	}

	var granted []string
	grants := &repositories.MockAchievementRepository{
		InsertFunc: func(ctx context.Context, q repositories.Querier, id uuid.UUID, key string) (bool, error) {
			granted = append(granted, key)
			return true, nil
		},
	}
	achievements := services.NewAchievementService(grants, nil, zap.NewNop())

	task := NewStreakUpdateTask(userID, users, achievements, zap.NewNop())
	require.NoError(t, task.Execute(context.Background(), &recordingEnqueuer{}))

	assert.ElementsMatch(t, []string{
		models.AchievementStreak1Month,
		models.AchievementStreak3Months,
	}, granted)
}

func TestStreakUpdateTasks_HaveDistinctIDs(t *testing.T) {
	userID := uuid.New()
	users := &repositories.MockUserRepository{}
	achievements := services.NewAchievementService(&repositories.MockAchievementRepository{}, nil, zap.NewNop())

	a := NewStreakUpdateTask(userID, users, achievements, zap.NewNop())
	b := NewStreakUpdateTask(userID, users, achievements, zap.NewNop())
	assert.NotEqual(t, a.ID(), b.ID())
}

func ptr[T any](v T) *T { return &v }
