package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/repositories"
)

// Profile is the aggregate view returned to the profile screen.
type Profile struct {
	User         *models.User                    `json:"user"`
	PlantCount   int                             `json:"plant_count"`
	Achievements []repositories.AchievementGrant `json:"achievements"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Bio               *string `json:"bio"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	Country           *string `json:"country"`
	State             *string `json:"state"`
}

// ProfileService assembles and edits user profiles.
type ProfileService struct {
	users        repositories.UserRepository
	plants       repositories.PlantRepository
	achievements *AchievementService
	logger       *zap.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(users repositories.UserRepository, plants repositories.PlantRepository, achievements *AchievementService, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		users:        users,
		plants:       plants,
		achievements: achievements,
		logger:       logger.Named("profile"),
	}
}

// Get returns the user's profile with garden size and earned achievements.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.plants.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	grants, err := s.achievements.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = []repositories.AchievementGrant{}
	}

	return &Profile{User: user, PlantCount: count, Achievements: grants}, nil
}

// Update applies the non-nil fields and returns the updated user.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Bio != nil {
		user.Bio = update.Bio
	}
	if update.ProfilePictureURL != nil {
		user.ProfilePictureURL = update.ProfilePictureURL
	}
	if update.Country != nil {
		user.Country = update.Country
	}
	if update.State != nil {
		user.State = update.State
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
