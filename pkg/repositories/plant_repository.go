package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/database"
	"github.com/vichsort/PlantE/pkg/models"
)

// WateringCandidate is one tracked plant joined with everything the watering
// sweep needs: the owner's push token and the species' cached care details.
type WateringCandidate struct {
	Plant          models.UserPlant
	UserID         uuid.UUID
	FCMToken       string
	ScientificName string
	// Details is nil when the species has not been enriched yet.
	Details *models.PlantDetails
}

// PlantRepository defines the interface for user garden data access.
// All user-scoped reads take the owner's ID so missing and foreign rows are
// indistinguishable (no existence leak across user boundaries).
type PlantRepository interface {
	// Upsert adds the species to the user's garden, or refreshes the
	// existing record's image when the pair already exists.
	Upsert(ctx context.Context, plant *models.UserPlant) error
	GetByID(ctx context.Context, userID, plantID uuid.UUID) (*models.UserPlant, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserPlant, error)
	Update(ctx context.Context, plant *models.UserPlant) error
	Delete(ctx context.Context, userID, plantID uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	SetLastWatered(ctx context.Context, userID, plantID uuid.UUID, when time.Time) error
	// ListWateringCandidates returns tracked plants whose owner has a push
	// token, joined to the species guide.
	ListWateringCandidates(ctx context.Context) ([]WateringCandidate, error)
}

// plantRepository implements PlantRepository using PostgreSQL.
type plantRepository struct {
	db *database.DB
}

// NewPlantRepository creates a new plant repository.
func NewPlantRepository(db *database.DB) PlantRepository {
	return &plantRepository{db: db}
}

func (r *plantRepository) Upsert(ctx context.Context, plant *models.UserPlant) error {
	if plant.ID == uuid.Nil {
		plant.ID = uuid.New()
	}

	query := `
		INSERT INTO user_garden (id, user_id, species_id, nickname, added_at, tracked_watering, primary_image_url)
		VALUES ($1, $2, $3, $4, now(), $5, $6)
		ON CONFLICT (user_id, species_id) DO UPDATE
		SET primary_image_url = COALESCE(EXCLUDED.primary_image_url, user_garden.primary_image_url)
		RETURNING id, added_at`

	err := r.db.QueryRow(ctx, query,
		plant.ID, plant.UserID, plant.SpeciesID,
		plant.Nickname, plant.TrackedWatering, plant.PrimaryImageURL,
	).Scan(&plant.ID, &plant.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user plant: %w", err)
	}
	return nil
}

const plantColumns = `g.id, g.user_id, g.species_id, g.nickname, g.added_at,
	g.last_watered, g.care_notes, g.tracked_watering, g.primary_image_url,
	p.scientific_name`

func scanPlant(row pgx.Row) (*models.UserPlant, error) {
	var p models.UserPlant
	err := row.Scan(
		&p.ID, &p.UserID, &p.SpeciesID, &p.Nickname, &p.AddedAt,
		&p.LastWatered, &p.CareNotes, &p.TrackedWatering, &p.PrimaryImageURL,
		&p.ScientificName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user plant: %w", err)
	}
	return &p, nil
}

func (r *plantRepository) GetByID(ctx context.Context, userID, plantID uuid.UUID) (*models.UserPlant, error) {
	query := `
		SELECT ` + plantColumns + `
		FROM user_garden g
		JOIN plant_guide p ON p.species_id = g.species_id
		WHERE g.id = $1 AND g.user_id = $2`

	return scanPlant(r.db.QueryRow(ctx, query, plantID, userID))
}

func (r *plantRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserPlant, error) {
	query := `
		SELECT ` + plantColumns + `
		FROM user_garden g
		JOIN plant_guide p ON p.species_id = g.species_id
		WHERE g.user_id = $1
		ORDER BY g.added_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user plants: %w", err)
	}
	defer rows.Close()

	var plants []*models.UserPlant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

func (r *plantRepository) Update(ctx context.Context, plant *models.UserPlant) error {
	query := `
		UPDATE user_garden
		SET nickname = $1, care_notes = $2, tracked_watering = $3
		WHERE id = $4 AND user_id = $5`

	result, err := r.db.Exec(ctx, query,
		plant.Nickname, plant.CareNotes, plant.TrackedWatering,
		plant.ID, plant.UserID)
	if err != nil {
		return fmt.Errorf("failed to update user plant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *plantRepository) Delete(ctx context.Context, userID, plantID uuid.UUID) error {
	query := `DELETE FROM user_garden WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, query, plantID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user plant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *plantRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM user_garden WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user plants: %w", err)
	}
	return count, nil
}

func (r *plantRepository) SetLastWatered(ctx context.Context, userID, plantID uuid.UUID, when time.Time) error {
	query := `
		UPDATE user_garden
		SET last_watered = $1
		WHERE id = $2 AND user_id = $3`

	result, err := r.db.Exec(ctx, query, when, plantID, userID)
	if err != nil {
		return fmt.Errorf("failed to set last watered: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *plantRepository) ListWateringCandidates(ctx context.Context) ([]WateringCandidate, error) {
	query := `
		SELECT g.id, g.user_id, g.species_id, g.nickname, g.added_at,
		       g.last_watered, g.tracked_watering,
		       u.fcm_token, p.scientific_name, p.details
		FROM user_garden g
		JOIN users u ON u.id = g.user_id
		JOIN plant_guide p ON p.species_id = g.species_id
		WHERE g.tracked_watering AND u.fcm_token IS NOT NULL`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list watering candidates: %w", err)
	}
	defer rows.Close()

	var candidates []WateringCandidate
	for rows.Next() {
		var (
			c          WateringCandidate
			detailsRaw []byte
		)
		err := rows.Scan(
			&c.Plant.ID, &c.Plant.UserID, &c.Plant.SpeciesID, &c.Plant.Nickname,
			&c.Plant.AddedAt, &c.Plant.LastWatered, &c.Plant.TrackedWatering,
			&c.FCMToken, &c.ScientificName, &detailsRaw,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watering candidate: %w", err)
		}

		c.UserID = c.Plant.UserID
		c.Plant.ScientificName = c.ScientificName
		if len(detailsRaw) > 0 {
			var details models.PlantDetails
			if err := json.Unmarshal(detailsRaw, &details); err != nil {
				return nil, fmt.Errorf("corrupt details payload for %s: %w", c.Plant.SpeciesID, err)
			}
			c.Details = &details
		}

		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
