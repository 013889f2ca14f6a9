package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vichsort/PlantE/pkg/database"
	"github.com/vichsort/PlantE/pkg/models"
)

// AchievementGrant is a catalog entry joined with its grant timestamp.
type AchievementGrant struct {
	models.Achievement
	EarnedAt time.Time `json:"earned_at"`
}

// AchievementRepository defines the interface for achievement data access.
type AchievementRepository interface {
	// Insert writes a grant record through q, which may be a transaction.
	// Returns false when the (user, achievement) pair already exists; the
	// unique constraint makes this race-safe under concurrent grants.
	Insert(ctx context.Context, q Querier, userID uuid.UUID, key string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]AchievementGrant, error)
}

// achievementRepository implements AchievementRepository using PostgreSQL.
type achievementRepository struct {
	db *database.DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *database.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) Insert(ctx context.Context, q Querier, userID uuid.UUID, key string) (bool, error) {
	if q == nil {
		q = r.db
	}

	query := `
		INSERT INTO user_achievements (id, user_id, achievement_key, earned_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, achievement_key) DO NOTHING`

	result, err := q.Exec(ctx, query, uuid.New(), userID, key)
	if err != nil {
		return false, fmt.Errorf("failed to grant achievement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *achievementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]AchievementGrant, error) {
	query := `
		SELECT a.key, a.name, a.description, a.icon_name, ua.earned_at
		FROM user_achievements ua
		JOIN achievements a ON a.key = ua.achievement_key
		WHERE ua.user_id = $1
		ORDER BY ua.earned_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var grants []AchievementGrant
	for rows.Next() {
		var g AchievementGrant
		if err := rows.Scan(&g.Key, &g.Name, &g.Description, &g.IconName, &g.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
