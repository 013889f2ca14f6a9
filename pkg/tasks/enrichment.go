package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/push"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/services"
)

// EnrichmentTask fills in whatever guide payloads a species is still
// missing, then tells the user who asked for the guide that it is ready.
// Safe to schedule repeatedly: a fully enriched guide makes it a no-op, and
// the deterministic ID collapses concurrent triggers for the same species.
type EnrichmentTask struct {
	SpeciesID      string
	ScientificName string

	// NotifyUserID is who requested the guide. Zero means nobody is told
	// when it completes (sweep-discovered repairs).
	NotifyUserID uuid.UUID

	Guides       *cache.GuideCache
	Users        repositories.UserRepository
	Achievements *services.AchievementService
	Sender       push.Sender
	Logger       *zap.Logger
}

func (t *EnrichmentTask) ID() string                { return "enrich:" + t.SpeciesID }
func (t *EnrichmentTask) Name() string              { return "guide-enrichment" }
func (t *EnrichmentTask) UsesGenerativeModel() bool { return true }

func (t *EnrichmentTask) Execute(ctx context.Context, enqueuer TaskEnqueuer) error {
	guide, changed, err := t.Guides.Enrich(ctx, t.SpeciesID, t.ScientificName)
	if err != nil {
		return fmt.Errorf("enrichment for %s: %w", t.SpeciesID, err)
	}
	if !changed {
		t.Logger.Debug("guide already enriched, nothing to do",
			zap.String("species_id", t.SpeciesID))
		return nil
	}
	if t.NotifyUserID == uuid.Nil {
		return nil
	}

	t.Achievements.GrantIfAbsent(ctx, nil, t.NotifyUserID, models.AchievementFirstDeepAnalysis)

	user, err := t.Users.GetByID(ctx, t.NotifyUserID)
	if err != nil {
		// The guide is stored either way; the notification is best-effort.
		t.Logger.Warn("could not load user for enrichment notification",
			zap.String("user_id", t.NotifyUserID.String()),
			zap.Error(err))
		return nil
	}
	if user.FCMToken == nil || *user.FCMToken == "" {
		return nil
	}

	enqueuer.Enqueue(&NotificationTask{
		Key:   "enriched:" + t.SpeciesID + ":" + t.NotifyUserID.String(),
		Token: *user.FCMToken,
		Title: "Guia pronto!",
		Body:  fmt.Sprintf("O guia completo de %s já está disponível.", guide.ScientificName),
		Data: map[string]string{
			"type":       "guide_enriched",
			"species_id": t.SpeciesID,
		},
		Sender: t.Sender,
		Users:  t.Users,
		Logger: t.Logger,
	})
	return nil
}

// HealthEnrichmentTask generates a treatment plan for a diagnosed disease
// and writes it onto the species guide. A repeat diagnosis of the same
// disease is a no-op; a different disease overwrites the previous plan.
type HealthEnrichmentTask struct {
	SpeciesID      string
	ScientificName string
	DiseaseName    string

	Enricher enrich.Client
	Guides   *cache.GuideCache
	Logger   *zap.Logger
}

func (t *HealthEnrichmentTask) ID() string {
	return "health:" + t.SpeciesID + ":" + t.DiseaseName
}
func (t *HealthEnrichmentTask) Name() string              { return "health-enrichment" }
func (t *HealthEnrichmentTask) UsesGenerativeModel() bool { return true }

func (t *HealthEnrichmentTask) Execute(ctx context.Context, _ TaskEnqueuer) error {
	// Re-check before generating: the guide may already carry a plan for
	// this exact disease from an earlier assessment.
	if guide, err := t.Guides.Get(ctx, t.SpeciesID); err == nil &&
		guide.Health != nil && guide.Health.DiseaseName == t.DiseaseName {
		t.Logger.Debug("treatment plan already present, nothing to do",
			zap.String("species_id", t.SpeciesID),
			zap.String("disease", t.DiseaseName))
		return nil
	}

	info, err := t.Enricher.DiseaseTreatment(ctx, t.ScientificName, t.DiseaseName)
	if err != nil {
		return fmt.Errorf("treatment generation for %s: %w", t.SpeciesID, err)
	}

	if err := t.Guides.UpdateHealth(ctx, t.SpeciesID, info); err != nil {
		return fmt.Errorf("persisting treatment for %s: %w", t.SpeciesID, err)
	}

	t.Logger.Info("treatment plan stored",
		zap.String("species_id", t.SpeciesID),
		zap.String("disease", t.DiseaseName))
	return nil
}
