package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/repositories"
)

const testSpeciesID = "monstera-deliciosa"

func enrichedGuide() *models.PlantGuide {
	now := time.Now().UTC()
	return &models.PlantGuide{
		SpeciesID:      testSpeciesID,
		ScientificName: "Monstera deliciosa",
		Details: &models.PlantDetails{
			PopularNames:          []string{"costela-de-adão"},
			Description:           "trepadeira de folhas fenestradas",
			WateringFrequencyDays: 7,
		},
		Nutritional: &models.NutritionalInfo{
			Recipe: models.FoodRecipe{Name: "salada de fruta", Ingredients: []string{"fruta madura"}},
		},
		LastEnrichedAt: &now,
	}
}

func seedFastTier(t *testing.T, store *MemoryStore, guide *models.PlantGuide) {
	t.Helper()
	raw, err := json.Marshal(guide)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), guideKey(guide.SpeciesID), string(raw), GuideTTL))
}

func TestGuideCache_GetOrCreate_FastTierHit(t *testing.T) {
	store := NewMemoryStore()
	guides := &repositories.MockGuideRepository{}
	enricher := enrich.NewMockClient()
	cache := NewGuideCache(store, guides, enricher, zap.NewNop())

	seedFastTier(t, store, enrichedGuide())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.Equal(t, "Monstera deliciosa", guide.ScientificName)
	assert.NotNil(t, guide.Details)

	// Neither the durable tier nor generation were touched.
	assert.Equal(t, 0, guides.GetCalls)
	assert.Equal(t, 0, enricher.PlantDetailsCalls)
}

func TestGuideCache_GetOrCreate_DurableHitWritesBack(t *testing.T) {
	store := NewMemoryStore()
	seeded := enrichedGuide()
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return seeded, nil
		},
	}
	enricher := enrich.NewMockClient()
	cache := NewGuideCache(store, guides, enricher, zap.NewNop())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.Equal(t, seeded.ScientificName, guide.ScientificName)
	assert.Equal(t, 0, enricher.PlantDetailsCalls)

	// The fast tier self-heals from the durable hit, with the full TTL.
	_, err = store.Get(context.Background(), guideKey(testSpeciesID))
	require.NoError(t, err)
	ttl, ok := store.TTL(guideKey(testSpeciesID))
	require.True(t, ok)
	assert.Equal(t, GuideTTL, ttl)
}

func TestGuideCache_GetOrCreate_FullMissGenerates(t *testing.T) {
	store := NewMemoryStore()
	var persisted struct {
		details     *models.PlantDetails
		nutritional *models.NutritionalInfo
	}
	guides := &repositories.MockGuideRepository{
		UpdateEnrichmentFunc: func(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error {
			persisted.details = details
			persisted.nutritional = nutritional
			return nil
		},
	}
	enricher := enrich.NewMockClient()
	cache := NewGuideCache(store, guides, enricher, zap.NewNop())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)

	// A stub row was created before generation ran.
	assert.Equal(t, 1, guides.CreateStubCalls)
	assert.Equal(t, 1, enricher.PlantDetailsCalls)
	assert.Equal(t, 1, enricher.NutritionalDetailsCalls)
	require.NotNil(t, persisted.details)
	require.NotNil(t, persisted.nutritional)
	assert.NotNil(t, guide.Details)
	assert.NotNil(t, guide.Nutritional)
	assert.NotNil(t, guide.LastEnrichedAt)

	// The generated guide was mirrored into the fast tier.
	_, err = store.Get(context.Background(), guideKey(testSpeciesID))
	assert.NoError(t, err)
}

func TestGuideCache_GetOrCreate_PartialRowDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	partial := enrichedGuide()
	partial.Nutritional = nil
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return partial, nil
		},
	}
	enricher := enrich.NewMockClient()
	cache := NewGuideCache(store, guides, enricher, zap.NewNop())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.NotNil(t, guide.Details)
	assert.Nil(t, guide.Nutritional)

	// No inline generation: re-enrichment of an existing partial row is the
	// scheduler's job.
	assert.Equal(t, 0, enricher.PlantDetailsCalls)
	assert.Equal(t, 0, enricher.NutritionalDetailsCalls)

	// Partial guides never enter the fast tier.
	_, err = store.Get(context.Background(), guideKey(testSpeciesID))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGuideCache_Enrich_GeneratesOnlyMissingPayload(t *testing.T) {
	store := NewMemoryStore()
	partial := enrichedGuide()
	partial.Nutritional = nil
	partial.LastEnrichedAt = nil
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return partial, nil
		},
	}
	var gotDetails *models.PlantDetails
	guides.UpdateEnrichmentFunc = func(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error {
		gotDetails = details
		require.NotNil(t, nutritional)
		return nil
	}
	enricher := enrich.NewMockClient()
	cache := NewGuideCache(store, guides, enricher, zap.NewNop())

	guide, changed, err := cache.Enrich(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.True(t, changed)

	// The present payload was neither regenerated nor resubmitted.
	assert.Equal(t, 0, enricher.PlantDetailsCalls)
	assert.Equal(t, 1, enricher.NutritionalDetailsCalls)
	assert.Nil(t, gotDetails)
	assert.NotNil(t, guide.Nutritional)
}

func TestGuideCache_Enrich_AlreadyCompleteIsNoop(t *testing.T) {
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return enrichedGuide(), nil
		},
	}
	enricher := enrich.NewMockClient()
	cache := NewGuideCache(NewMemoryStore(), guides, enricher, zap.NewNop())

	_, changed, err := cache.Enrich(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, enricher.PlantDetailsCalls)
	assert.Equal(t, 0, enricher.NutritionalDetailsCalls)
	assert.Equal(t, 0, guides.UpdateEnrichmentCalls)
}

func TestGuideCache_Enrich_DurableFailureSkipsFastTier(t *testing.T) {
	store := NewMemoryStore()
	guides := &repositories.MockGuideRepository{
		UpdateEnrichmentFunc: func(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error {
			return errors.New("connection reset")
		},
	}
	cache := NewGuideCache(store, guides, enrich.NewMockClient(), zap.NewNop())

	_, _, err := cache.Enrich(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.Error(t, err)

	// No fast-tier entry without a durable counterpart.
	_, err = store.Get(context.Background(), guideKey(testSpeciesID))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGuideCache_Enrich_FastTierFailureStillSucceeds(t *testing.T) {
	store := NewMemoryStore()
	store.Err = errors.New("connection refused")
	guides := &repositories.MockGuideRepository{}
	cache := NewGuideCache(store, guides, enrich.NewMockClient(), zap.NewNop())

	guide, changed, err := cache.Enrich(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotNil(t, guide.Details)
	assert.Equal(t, 1, guides.UpdateEnrichmentCalls)
}

func TestGuideCache_GetOrCreate_StoreOutageDegradesToDurable(t *testing.T) {
	store := NewMemoryStore()
	store.Err = errors.New("connection refused")
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return enrichedGuide(), nil
		},
	}
	cache := NewGuideCache(store, guides, enrich.NewMockClient(), zap.NewNop())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.NotNil(t, guide.Details)
	assert.Equal(t, 1, guides.GetCalls)
}

func TestGuideCache_ExpiredEntryRepopulates(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.Now = func() time.Time { return now }
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return enrichedGuide(), nil
		},
	}
	cache := NewGuideCache(store, guides, enrich.NewMockClient(), zap.NewNop())

	seedFastTier(t, store, enrichedGuide())

	// Past the TTL the entry is gone and the durable tier repopulates it.
	now = now.Add(GuideTTL + time.Minute)

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.NotNil(t, guide.Details)
	assert.Equal(t, 1, guides.GetCalls)

	ttl, ok := store.TTL(guideKey(testSpeciesID))
	require.True(t, ok)
	assert.Equal(t, GuideTTL, ttl)
}

func TestGuideCache_NilStoreDisablesFastTier(t *testing.T) {
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return enrichedGuide(), nil
		},
	}
	cache := NewGuideCache(nil, guides, enrich.NewMockClient(), zap.NewNop())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.NotNil(t, guide.Details)
}

func TestGuideCache_CorruptEntryFallsThrough(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), guideKey(testSpeciesID), "{not json", GuideTTL))
	guides := &repositories.MockGuideRepository{
		GetFunc: func(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
			return enrichedGuide(), nil
		},
	}
	cache := NewGuideCache(store, guides, enrich.NewMockClient(), zap.NewNop())

	guide, err := cache.GetOrCreate(context.Background(), testSpeciesID, "Monstera deliciosa")
	require.NoError(t, err)
	assert.NotNil(t, guide.Details)
	assert.Equal(t, 1, guides.GetCalls)
}

func TestGuideCache_Get_NotFoundPropagates(t *testing.T) {
	cache := NewGuideCache(NewMemoryStore(), &repositories.MockGuideRepository{}, enrich.NewMockClient(), zap.NewNop())

	_, err := cache.Get(context.Background(), testSpeciesID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
