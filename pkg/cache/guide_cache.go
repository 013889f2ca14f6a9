package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/repositories"
)

// GuideTTL bounds the fast-tier lifetime of a guide entry (7 days).
const GuideTTL = 7 * 24 * time.Hour

// guideKey builds the fast-tier key for a species.
func guideKey(speciesID string) string {
	return "guide:" + speciesID
}

// GuideCache is the read-through cache for plant guides. Lookup order: fast
// tier, durable tier, generation. The durable tier is authoritative; the fast
// tier is a best-effort mirror that self-heals on the next miss.
type GuideCache struct {
	store    Store
	guides   repositories.GuideRepository
	enricher enrich.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewGuideCache creates the guide cache. A nil store disables the fast tier
// entirely (every lookup goes to the durable tier).
func NewGuideCache(store Store, guides repositories.GuideRepository, enricher enrich.Client, logger *zap.Logger) *GuideCache {
	return &GuideCache{
		store:    store,
		guides:   guides,
		enricher: enricher,
		ttl:      GuideTTL,
		logger:   logger.Named("guide-cache"),
	}
}

// GetOrCreate resolves the guide for a just-identified species.
//
// Generation runs inline only when the species has never been seen before
// (no durable row). A row that exists but is still partially enriched is
// returned as-is; the caller schedules asynchronous re-enrichment rather
// than blocking a second request on generation.
func (c *GuideCache) GetOrCreate(ctx context.Context, speciesID, scientificName string) (*models.PlantGuide, error) {
	if guide := c.fastGet(ctx, speciesID); guide != nil {
		return guide, nil
	}

	guide, err := c.guides.Get(ctx, speciesID)
	switch {
	case err == nil:
		if guide.Enriched() {
			c.mirror(ctx, guide)
		}
		return guide, nil
	case errors.Is(err, apperrors.ErrNotFound):
		// First sighting: generate synchronously.
		guide, _, err = c.Enrich(ctx, speciesID, scientificName)
		return guide, err
	default:
		return nil, err
	}
}

// Get returns the guide without triggering generation, fast tier first.
func (c *GuideCache) Get(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
	if guide := c.fastGet(ctx, speciesID); guide != nil {
		return guide, nil
	}
	guide, err := c.guides.Get(ctx, speciesID)
	if err != nil {
		return nil, err
	}
	if guide.Enriched() {
		c.mirror(ctx, guide)
	}
	return guide, nil
}

// Enrich populates whichever enrichment payloads are still missing for the
// species and persists them, durable tier first. It is the idempotent core
// shared by the synchronous first-sighting path and the background
// enrichment task: when both payloads are already present it returns without
// touching the generative client, so racing callers collapse to one
// effective write. Returns the guide and whether anything was generated.
func (c *GuideCache) Enrich(ctx context.Context, speciesID, scientificName string) (*models.PlantGuide, bool, error) {
	guide, err := c.guides.Get(ctx, speciesID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// Create the row eagerly so the durable tier has something to
		// update even if generation fails partway.
		if err := c.guides.CreateStub(ctx, speciesID, scientificName); err != nil {
			return nil, false, err
		}
		guide = &models.PlantGuide{SpeciesID: speciesID, ScientificName: scientificName}
	} else if err != nil {
		return nil, false, err
	}

	if guide.Enriched() {
		return guide, false, nil
	}

	// Generate only the missing payloads; a present payload is never
	// regenerated.
	var (
		newDetails     *models.PlantDetails
		newNutritional *models.NutritionalInfo
	)
	if guide.Details == nil {
		newDetails, err = c.enricher.PlantDetails(ctx, guide.ScientificName)
		if err != nil {
			return nil, false, fmt.Errorf("details generation failed: %w", err)
		}
	}
	if guide.Nutritional == nil {
		newNutritional, err = c.enricher.NutritionalDetails(ctx, guide.ScientificName)
		if err != nil {
			return nil, false, fmt.Errorf("nutritional generation failed: %w", err)
		}
	}

	// Durable tier first: no fast-tier entry may exist without a durable
	// counterpart.
	if err := c.guides.UpdateEnrichment(ctx, speciesID, newDetails, newNutritional); err != nil {
		return nil, false, err
	}

	if newDetails != nil {
		guide.Details = newDetails
	}
	if newNutritional != nil {
		guide.Nutritional = newNutritional
	}
	now := time.Now().UTC()
	guide.LastEnrichedAt = &now

	c.mirror(ctx, guide)

	return guide, true, nil
}

// UpdateHealth persists a fresh treatment plan, then refreshes the fast
// tier so the mirror does not serve the superseded plan for up to a TTL.
func (c *GuideCache) UpdateHealth(ctx context.Context, speciesID string, health *models.DiseaseInfo) error {
	if err := c.guides.UpdateHealth(ctx, speciesID, health); err != nil {
		return err
	}

	guide, err := c.guides.Get(ctx, speciesID)
	if err != nil {
		c.logger.Warn("could not reload guide after health update",
			zap.String("species_id", speciesID),
			zap.Error(err))
		return nil
	}
	if guide.Enriched() {
		c.mirror(ctx, guide)
	}
	return nil
}

// Mirror writes the guide into the fast tier. Best-effort: failures are
// logged, never propagated.
func (c *GuideCache) Mirror(ctx context.Context, guide *models.PlantGuide) {
	c.mirror(ctx, guide)
}

func (c *GuideCache) fastGet(ctx context.Context, speciesID string) *models.PlantGuide {
	if c.store == nil {
		return nil
	}

	raw, err := c.store.Get(ctx, guideKey(speciesID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			// Degrade to the durable tier instead of failing the request.
			c.logger.Warn("fast tier unavailable, falling through",
				zap.String("species_id", speciesID),
				zap.Error(err))
		}
		return nil
	}

	var guide models.PlantGuide
	if err := json.Unmarshal([]byte(raw), &guide); err != nil {
		c.logger.Warn("corrupt fast-tier entry, falling through",
			zap.String("species_id", speciesID),
			zap.Error(err))
		return nil
	}
	return &guide
}

func (c *GuideCache) mirror(ctx context.Context, guide *models.PlantGuide) {
	if c.store == nil {
		return
	}

	raw, err := json.Marshal(guide)
	if err != nil {
		c.logger.Error("failed to marshal guide for fast tier",
			zap.String("species_id", guide.SpeciesID),
			zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, guideKey(guide.SpeciesID), string(raw), c.ttl); err != nil {
		c.logger.Warn("fast-tier write failed, entry will repopulate on next miss",
			zap.String("species_id", guide.SpeciesID),
			zap.Error(err))
	}
}
