package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/auth"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/repositories"
)

// UserService handles account lifecycle: registration, login, push token
// registration, and subscription changes.
type UserService struct {
	users        repositories.UserRepository
	achievements *AchievementService
	tokens       *auth.TokenIssuer
	logger       *zap.Logger

	now func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(users repositories.UserRepository, achievements *AchievementService, tokens *auth.TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		users:        users,
		achievements: achievements,
		tokens:       tokens,
		logger:       logger.Named("users"),
		now:          time.Now,
	}
}

// Register creates an account and returns it with a fresh access token.
// A duplicate email surfaces as ErrConflict.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	user := &models.User{
		ID:                 uuid.New(),
		Email:              email,
		SubscriptionStatus: models.SubscriptionFree,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password both map to ErrInvalidCredentials; the response never reveals
// which one it was.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetByID fetches a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// RegisterFCMToken stores the user's current device push token. One token
// per user; registering from a new device replaces the old token.
func (s *UserService) RegisterFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	return s.users.SetFCMToken(ctx, userID, token)
}

// UnregisterFCMToken removes the user's push token, stopping reminders for
// the device.
func (s *UserService) UnregisterFCMToken(ctx context.Context, userID uuid.UUID) error {
	return s.users.ClearFCMToken(ctx, userID)
}

// UpdateSubscription moves the user to the given tier. The first transition
// into premium stamps premium_since and awards the premium badge; later
// renewals keep the original stamp.
func (s *UserService) UpdateSubscription(ctx context.Context, userID uuid.UUID, status string, expiresAt *time.Time) (*models.User, error) {
	switch status {
	case models.SubscriptionFree, models.SubscriptionPremium, models.SubscriptionTrial:
	default:
		return nil, fmt.Errorf("unknown subscription status %q", status)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	premiumSince := user.PremiumSince
	if status == models.SubscriptionPremium && premiumSince == nil {
		now := s.now().UTC()
		premiumSince = &now
	}

	if err := s.users.SetSubscription(ctx, userID, status, expiresAt, premiumSince); err != nil {
		return nil, err
	}

	if status == models.SubscriptionPremium {
		s.achievements.GrantIfAbsent(ctx, nil, userID, models.AchievementPremiumUser)
	}

	user.SubscriptionStatus = status
	user.SubscriptionExpiresAt = expiresAt
	user.PremiumSince = premiumSince
	return user, nil
}
