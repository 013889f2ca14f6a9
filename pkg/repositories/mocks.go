package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/models"
)

// Configurable mocks for testing repository consumers. Set the function
// fields to control behavior; unset fields return zero values or ErrNotFound
// where a lookup semantically needs one.

// MockUserRepository is a configurable mock of UserRepository.
type MockUserRepository struct {
	CreateFunc                  func(ctx context.Context, user *models.User) error
	GetByIDFunc                 func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	UpdateProfileFunc           func(ctx context.Context, user *models.User) error
	SetFCMTokenFunc             func(ctx context.Context, userID uuid.UUID, token string) error
	ClearFCMTokenFunc           func(ctx context.Context, userID uuid.UUID) error
	ClearFCMTokenIfMatchesFunc  func(ctx context.Context, token string) (bool, error)
	ListStaleTokensFunc         func(ctx context.Context, cutoff time.Time) ([]StaleToken, error)
	SetSubscriptionFunc         func(ctx context.Context, userID uuid.UUID, status string, expiresAt, premiumSince *time.Time) error
	IncrementWateringStreakFunc func(ctx context.Context, userID uuid.UUID) (int, error)
	ListAllFunc                 func(ctx context.Context) ([]*models.User, error)

	CreateCalls                  int
	GetByIDCalls                 int
	GetByEmailCalls              int
	UpdateProfileCalls           int
	SetFCMTokenCalls             int
	ClearFCMTokenCalls           int
	ClearFCMTokenIfMatchesCalls  int
	ListStaleTokensCalls         int
	SetSubscriptionCalls         int
	IncrementWateringStreakCalls int
	ListAllCalls                 int
}

var _ UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.CreateCalls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.GetByIDCalls++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.GetByEmailCalls++
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, apperrors.ErrNotFound
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	m.UpdateProfileCalls++
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) SetFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	m.SetFCMTokenCalls++
	if m.SetFCMTokenFunc != nil {
		return m.SetFCMTokenFunc(ctx, userID, token)
	}
	return nil
}

func (m *MockUserRepository) ClearFCMToken(ctx context.Context, userID uuid.UUID) error {
	m.ClearFCMTokenCalls++
	if m.ClearFCMTokenFunc != nil {
		return m.ClearFCMTokenFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) ClearFCMTokenIfMatches(ctx context.Context, token string) (bool, error) {
	m.ClearFCMTokenIfMatchesCalls++
	if m.ClearFCMTokenIfMatchesFunc != nil {
		return m.ClearFCMTokenIfMatchesFunc(ctx, token)
	}
	return false, nil
}

func (m *MockUserRepository) ListStaleTokens(ctx context.Context, cutoff time.Time) ([]StaleToken, error) {
	m.ListStaleTokensCalls++
	if m.ListStaleTokensFunc != nil {
		return m.ListStaleTokensFunc(ctx, cutoff)
	}
	return nil, nil
}

func (m *MockUserRepository) SetSubscription(ctx context.Context, userID uuid.UUID, status string, expiresAt, premiumSince *time.Time) error {
	m.SetSubscriptionCalls++
	if m.SetSubscriptionFunc != nil {
		return m.SetSubscriptionFunc(ctx, userID, status, expiresAt, premiumSince)
	}
	return nil
}

func (m *MockUserRepository) IncrementWateringStreak(ctx context.Context, userID uuid.UUID) (int, error) {
	m.IncrementWateringStreakCalls++
	if m.IncrementWateringStreakFunc != nil {
		return m.IncrementWateringStreakFunc(ctx, userID)
	}
	return 1, nil
}

func (m *MockUserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	m.ListAllCalls++
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

// MockGuideRepository is a configurable mock of GuideRepository.
type MockGuideRepository struct {
	GetFunc              func(ctx context.Context, speciesID string) (*models.PlantGuide, error)
	CreateStubFunc       func(ctx context.Context, speciesID, scientificName string) error
	UpdateEnrichmentFunc func(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error
	UpdateHealthFunc     func(ctx context.Context, speciesID string, health *models.DiseaseInfo) error

	GetCalls              int
	CreateStubCalls       int
	UpdateEnrichmentCalls int
	UpdateHealthCalls     int
}

var _ GuideRepository = (*MockGuideRepository)(nil)

func (m *MockGuideRepository) Get(ctx context.Context, speciesID string) (*models.PlantGuide, error) {
	m.GetCalls++
	if m.GetFunc != nil {
		return m.GetFunc(ctx, speciesID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *MockGuideRepository) CreateStub(ctx context.Context, speciesID, scientificName string) error {
	m.CreateStubCalls++
	if m.CreateStubFunc != nil {
		return m.CreateStubFunc(ctx, speciesID, scientificName)
	}
	return nil
}

func (m *MockGuideRepository) UpdateEnrichment(ctx context.Context, speciesID string, details *models.PlantDetails, nutritional *models.NutritionalInfo) error {
	m.UpdateEnrichmentCalls++
	if m.UpdateEnrichmentFunc != nil {
		return m.UpdateEnrichmentFunc(ctx, speciesID, details, nutritional)
	}
	return nil
}

func (m *MockGuideRepository) UpdateHealth(ctx context.Context, speciesID string, health *models.DiseaseInfo) error {
	m.UpdateHealthCalls++
	if m.UpdateHealthFunc != nil {
		return m.UpdateHealthFunc(ctx, speciesID, health)
	}
	return nil
}

// MockPlantRepository is a configurable mock of PlantRepository.
type MockPlantRepository struct {
	UpsertFunc                 func(ctx context.Context, plant *models.UserPlant) error
	GetByIDFunc                func(ctx context.Context, userID, plantID uuid.UUID) (*models.UserPlant, error)
	ListByUserFunc             func(ctx context.Context, userID uuid.UUID) ([]*models.UserPlant, error)
	UpdateFunc                 func(ctx context.Context, plant *models.UserPlant) error
	DeleteFunc                 func(ctx context.Context, userID, plantID uuid.UUID) error
	CountByUserFunc            func(ctx context.Context, userID uuid.UUID) (int, error)
	SetLastWateredFunc         func(ctx context.Context, userID, plantID uuid.UUID, when time.Time) error
	ListWateringCandidatesFunc func(ctx context.Context) ([]WateringCandidate, error)

	UpsertCalls                 int
	GetByIDCalls                int
	ListByUserCalls             int
	UpdateCalls                 int
	DeleteCalls                 int
	CountByUserCalls            int
	SetLastWateredCalls         int
	ListWateringCandidatesCalls int
}

var _ PlantRepository = (*MockPlantRepository)(nil)

func (m *MockPlantRepository) Upsert(ctx context.Context, plant *models.UserPlant) error {
	m.UpsertCalls++
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, plant)
	}
	if plant.ID == uuid.Nil {
		plant.ID = uuid.New()
	}
	return nil
}

func (m *MockPlantRepository) GetByID(ctx context.Context, userID, plantID uuid.UUID) (*models.UserPlant, error) {
	m.GetByIDCalls++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, plantID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *MockPlantRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserPlant, error) {
	m.ListByUserCalls++
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockPlantRepository) Update(ctx context.Context, plant *models.UserPlant) error {
	m.UpdateCalls++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, plant)
	}
	return nil
}

func (m *MockPlantRepository) Delete(ctx context.Context, userID, plantID uuid.UUID) error {
	m.DeleteCalls++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, plantID)
	}
	return nil
}

func (m *MockPlantRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	m.CountByUserCalls++
	if m.CountByUserFunc != nil {
		return m.CountByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockPlantRepository) SetLastWatered(ctx context.Context, userID, plantID uuid.UUID, when time.Time) error {
	m.SetLastWateredCalls++
	if m.SetLastWateredFunc != nil {
		return m.SetLastWateredFunc(ctx, userID, plantID, when)
	}
	return nil
}

func (m *MockPlantRepository) ListWateringCandidates(ctx context.Context) ([]WateringCandidate, error) {
	m.ListWateringCandidatesCalls++
	if m.ListWateringCandidatesFunc != nil {
		return m.ListWateringCandidatesFunc(ctx)
	}
	return nil, nil
}

// MockAchievementRepository is a configurable mock of AchievementRepository.
type MockAchievementRepository struct {
	InsertFunc     func(ctx context.Context, q Querier, userID uuid.UUID, key string) (bool, error)
	ListByUserFunc func(ctx context.Context, userID uuid.UUID) ([]AchievementGrant, error)

	InsertCalls     int
	ListByUserCalls int
}

var _ AchievementRepository = (*MockAchievementRepository)(nil)

func (m *MockAchievementRepository) Insert(ctx context.Context, q Querier, userID uuid.UUID, key string) (bool, error) {
	m.InsertCalls++
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, q, userID, key)
	}
	return true, nil
}

func (m *MockAchievementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]AchievementGrant, error) {
	m.ListByUserCalls++
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}
