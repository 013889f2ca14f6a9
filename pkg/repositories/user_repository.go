package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/database"
	"github.com/vichsort/PlantE/pkg/models"
)

// StaleToken pairs a user with their aging push token.
type StaleToken struct {
	UserID uuid.UUID
	Token  string
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SetFCMToken(ctx context.Context, userID uuid.UUID, token string) error
	ClearFCMToken(ctx context.Context, userID uuid.UUID) error
	// ClearFCMTokenIfMatches nulls the token and its timestamp on whichever
	// user still carries exactly this token. Returns false if no row matched
	// (the token was already replaced or cleared).
	ClearFCMTokenIfMatches(ctx context.Context, token string) (bool, error)
	ListStaleTokens(ctx context.Context, cutoff time.Time) ([]StaleToken, error)
	SetSubscription(ctx context.Context, userID uuid.UUID, status string, expiresAt, premiumSince *time.Time) error
	// IncrementWateringStreak bumps the streak counter and returns the new value.
	IncrementWateringStreak(ctx context.Context, userID uuid.UUID) (int, error)
	ListAll(ctx context.Context) ([]*models.User, error)
}

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, created_at,
	fcm_token, fcm_token_updated_at,
	subscription_status, subscription_expires_at, premium_since,
	watering_streak, bio, profile_picture_url, country, state`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt,
		&u.FCMToken, &u.FCMTokenUpdatedAt,
		&u.SubscriptionStatus, &u.SubscriptionExpiresAt, &u.PremiumSince,
		&u.WateringStreak, &u.Bio, &u.ProfilePictureURL, &u.Country, &u.State,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user. Returns ErrConflict when the email is taken.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionFree
	}

	query := `
		INSERT INTO users (id, email, password_hash, created_at, subscription_status)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.SubscriptionStatus)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// UpdateProfile persists the user-editable profile fields.
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET bio = $1, profile_picture_url = $2, country = $3, state = $4
		WHERE id = $5`

	result, err := r.db.Exec(ctx, query,
		user.Bio, user.ProfilePictureURL, user.Country, user.State, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	query := `
		UPDATE users
		SET fcm_token = $1, fcm_token_updated_at = now()
		WHERE id = $2`

	result, err := r.db.Exec(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) ClearFCMToken(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET fcm_token = NULL, fcm_token_updated_at = NULL
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) ClearFCMTokenIfMatches(ctx context.Context, token string) (bool, error) {
	query := `
		UPDATE users
		SET fcm_token = NULL, fcm_token_updated_at = NULL
		WHERE fcm_token = $1`

	result, err := r.db.Exec(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate push token: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *userRepository) ListStaleTokens(ctx context.Context, cutoff time.Time) ([]StaleToken, error) {
	query := `
		SELECT id, fcm_token
		FROM users
		WHERE fcm_token IS NOT NULL AND fcm_token_updated_at < $1`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale tokens: %w", err)
	}
	defer rows.Close()

	var stale []StaleToken
	for rows.Next() {
		var s StaleToken
		if err := rows.Scan(&s.UserID, &s.Token); err != nil {
			return nil, fmt.Errorf("failed to scan stale token: %w", err)
		}
		stale = append(stale, s)
	}
	return stale, rows.Err()
}

func (r *userRepository) SetSubscription(ctx context.Context, userID uuid.UUID, status string, expiresAt, premiumSince *time.Time) error {
	query := `
		UPDATE users
		SET subscription_status = $1, subscription_expires_at = $2, premium_since = $3
		WHERE id = $4`

	result, err := r.db.Exec(ctx, query, status, expiresAt, premiumSince, userID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) IncrementWateringStreak(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE users
		SET watering_streak = watering_streak + 1
		WHERE id = $1
		RETURNING watering_streak`

	var streak int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&streak); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment watering streak: %w", err)
	}
	return streak, nil
}

func (r *userRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
