package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/database"
	"github.com/vichsort/PlantE/pkg/models"
)

// GuideRepository defines the interface for plant guide data access.
// plant_guide is shared global state: rows are created on first sighting,
// mutated only by enrichment, never deleted.
type GuideRepository interface {
	Get(ctx context.Context, speciesID string) (*models.PlantGuide, error)
	// CreateStub inserts a payload-less row so the durable tier has
	// something to update later. Idempotent: an existing row is left alone.
	CreateStub(ctx context.Context, speciesID, scientificName string) error
	// UpdateEnrichment sets whichever payloads are non-nil, leaving the
	// others untouched, and stamps last_enriched_at. Last writer wins;
	// payloads are idempotent regenerations, not incremental edits.
	UpdateEnrichment(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error
	// UpdateHealth overwrites the health payload with a new treatment plan.
	UpdateHealth(ctx context.Context, speciesID string, health *models.DiseaseInfo) error
}

// guideRepository implements GuideRepository using PostgreSQL.
type guideRepository struct {
	db *database.DB
}

// NewGuideRepository creates a new guide repository.
func NewGuideRepository(db *database.DB) GuideRepository {
	return &guideRepository{db: db}
}

func (r *guideRepository) Get(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
	query := `
		SELECT species_id, scientific_name, details, nutritional, health, last_enriched_at
		FROM plant_guide
		WHERE species_id = $1`

	var (
		guide                             models.PlantGuide
		detailsRaw, nutritionalRaw, healthRaw []byte
	)
	err := r.db.QueryRow(ctx, query, speciesID).Scan(
		&guide.SpeciesID, &guide.ScientificName,
		&detailsRaw, &nutritionalRaw, &healthRaw,
		&guide.LastEnrichedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plant guide: %w", err)
	}

	if err := unmarshalPayload(detailsRaw, &guide.Details); err != nil {
		return nil, fmt.Errorf("corrupt details payload for %s: %w", speciesID, err)
	}
	if err := unmarshalPayload(nutritionalRaw, &guide.Nutritional); err != nil {
		return nil, fmt.Errorf("corrupt nutritional payload for %s: %w", speciesID, err)
	}
	if err := unmarshalPayload(healthRaw, &guide.Health); err != nil {
		return nil, fmt.Errorf("corrupt health payload for %s: %w", speciesID, err)
	}

	return &guide, nil
}

func (r *guideRepository) CreateStub(ctx context.Context, speciesID, scientificName string) error {
	query := `
		INSERT INTO plant_guide (species_id, scientific_name)
		VALUES ($1, $2)
		ON CONFLICT (species_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, speciesID, scientificName); err != nil {
		return fmt.Errorf("failed to create plant guide stub: %w", err)
	}
	return nil
}

func (r *guideRepository) UpdateEnrichment(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error {
	detailsRaw, err := marshalPayload(details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}
	nutritionalRaw, err := marshalPayload(nutritional)
	if err != nil {
		return fmt.Errorf("failed to marshal nutritional info: %w", err)
	}

	query := `
		UPDATE plant_guide
		SET details = COALESCE($2, details),
		    nutritional = COALESCE($3, nutritional),
		    last_enriched_at = now()
		WHERE species_id = $1`

	result, err := r.db.Exec(ctx, query, speciesID, detailsRaw, nutritionalRaw)
	if err != nil {
		return fmt.Errorf("failed to update plant guide enrichment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *guideRepository) UpdateHealth(ctx context.Context, speciesID string, health *models.DiseaseInfo) error {
	healthRaw, err := marshalPayload(health)
	if err != nil {
		return fmt.Errorf("failed to marshal health payload: %w", err)
	}

	query := `
		UPDATE plant_guide
		SET health = $2, last_enriched_at = now()
		WHERE species_id = $1`

	result, err := r.db.Exec(ctx, query, speciesID, healthRaw)
	if err != nil {
		return fmt.Errorf("failed to update plant guide health: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// marshalPayload converts a nullable document pointer into a nullable JSONB
// argument. Typed nils must become SQL NULL, not the string "null".
func marshalPayload(v any) ([]byte, error) {
	switch p := v.(type) {
	case *models.PlantDetails:
		if p == nil {
			return nil, nil
		}
	case *models.NutritionalInfo:
		if p == nil {
			return nil, nil
		}
	case *models.DiseaseInfo:
		if p == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

// unmarshalPayload decodes a nullable JSONB column into **T, leaving *T nil
// when the column was NULL.
func unmarshalPayload[T any](raw []byte, out **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*out = &v
	return nil
}
