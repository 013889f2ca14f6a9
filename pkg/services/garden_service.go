package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/location"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/plantid"
	"github.com/vichsort/PlantE/pkg/repositories"
)

// Dispatcher schedules background work triggered by garden flows. The task
// machinery implements it; tests substitute a recording fake.
type Dispatcher interface {
	// DispatchEnrichment schedules guide generation for a species whose
	// durable row is still missing payloads. notifyUserID is told when the
	// guide completes; uuid.Nil means nobody is.
	DispatchEnrichment(speciesID, scientificName string, notifyUserID uuid.UUID)

	// DispatchHealthEnrichment schedules treatment plan generation for a
	// diagnosed disease.
	DispatchHealthEnrichment(speciesID, scientificName, diseaseName string)

	// DispatchStreakUpdate schedules the watering streak bump for a user.
	DispatchStreakUpdate(userID uuid.UUID)
}

// AnalyzeRequest is the input to the identification flow.
type AnalyzeRequest struct {
	ImageB64  string
	Latitude  *float64
	Longitude *float64
	Nickname  *string
	ImageURL  *string
}

// AnalyzeResult pairs the garden record with the species guide.
type AnalyzeResult struct {
	Plant *models.UserPlant  `json:"plant"`
	Guide *models.PlantGuide `json:"guide"`
}

// HealthResult is the outcome of a health assessment.
type HealthResult struct {
	IsHealthy   bool    `json:"is_healthy"`
	Probability float64 `json:"probability"`
	// Disease is the top-ranked diagnosis, nil when the plant looks healthy.
	Disease *plantid.DiseaseSuggestion `json:"disease,omitempty"`
	// TreatmentPending reports that a treatment plan is being generated in
	// the background and will appear on the guide shortly.
	TreatmentPending bool `json:"treatment_pending"`
}

// GardenService orchestrates the garden flows: identification, listing,
// watering, and health assessment.
type GardenService struct {
	identifier   plantid.Identifier
	guides       *cache.GuideCache
	plants       repositories.PlantRepository
	users        repositories.UserRepository
	gate         *RateLimitService
	achievements *AchievementService
	dispatcher   Dispatcher
	logger       *zap.Logger

	now func() time.Time
}

// NewGardenService creates a new garden service.
func NewGardenService(
	identifier plantid.Identifier,
	guides *cache.GuideCache,
	plants repositories.PlantRepository,
	users repositories.UserRepository,
	gate *RateLimitService,
	achievements *AchievementService,
	dispatcher Dispatcher,
	logger *zap.Logger,
) *GardenService {
	return &GardenService{
		identifier:   identifier,
		guides:       guides,
		plants:       plants,
		users:        users,
		gate:         gate,
		achievements: achievements,
		dispatcher:   dispatcher,
		logger:       logger.Named("garden"),
		now:          time.Now,
	}
}

// resolveCoords picks the identification coordinates: the request's own, the
// centroid of the user's profile state, or the countrywide default.
func (s *GardenService) resolveCoords(req AnalyzeRequest, user *models.User) location.Coordinates {
	if req.Latitude != nil && req.Longitude != nil {
		return location.Coordinates{Lat: *req.Latitude, Lon: *req.Longitude}
	}
	if user.State != nil {
		return location.Fallback(*user.State)
	}
	return location.DefaultCoordinates
}

// Analyze runs the identification flow: gate, classify, resolve the guide,
// and upsert the species into the user's garden. Free users spend one gated
// call whether or not the classifier finds a match.
func (s *GardenService) Analyze(ctx context.Context, userID uuid.UUID, req AnalyzeRequest) (*AnalyzeResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Allow(ctx, user); err != nil {
		return nil, err
	}

	identification, err := s.identifier.Identify(ctx, req.ImageB64, s.resolveCoords(req, user))
	if err != nil {
		return nil, err
	}
	best, err := identification.Best()
	if err != nil {
		return nil, err
	}

	guide, err := s.guides.GetOrCreate(ctx, best.SpeciesID, best.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guide: %w", err)
	}
	if !guide.Enriched() {
		s.dispatcher.DispatchEnrichment(guide.SpeciesID, guide.ScientificName, userID)
	}

	plant := &models.UserPlant{
		UserID:          userID,
		SpeciesID:       best.SpeciesID,
		Nickname:        req.Nickname,
		TrackedWatering: true,
		PrimaryImageURL: req.ImageURL,
		ScientificName:  guide.ScientificName,
	}
	if err := s.plants.Upsert(ctx, plant); err != nil {
		return nil, err
	}

	s.grantCollectionBadges(ctx, userID)

	s.logger.Info("plant identified",
		zap.String("user_id", userID.String()),
		zap.String("species_id", best.SpeciesID),
		zap.Float64("probability", best.Probability))

	return &AnalyzeResult{Plant: plant, Guide: guide}, nil
}

func (s *GardenService) grantCollectionBadges(ctx context.Context, userID uuid.UUID) {
	count, err := s.plants.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("could not count garden for badges", zap.Error(err))
		return
	}
	var keys []string
	if count >= 1 {
		keys = append(keys, models.AchievementFirstPlant)
	}
	if count >= 10 {
		keys = append(keys, models.AchievementTenPlants)
	}
	if len(keys) > 0 {
		s.achievements.GrantAll(ctx, userID, keys...)
	}
}

// List returns the user's garden.
func (s *GardenService) List(ctx context.Context, userID uuid.UUID) ([]*models.UserPlant, error) {
	return s.plants.ListByUser(ctx, userID)
}

// PlantDetail pairs one garden record with its species guide.
type PlantDetail struct {
	Plant *models.UserPlant  `json:"plant"`
	Guide *models.PlantGuide `json:"guide,omitempty"`
}

// Get returns one plant with its guide. A guide that has not finished
// generating yet is returned partial rather than failing the read.
func (s *GardenService) Get(ctx context.Context, userID, plantID uuid.UUID) (*PlantDetail, error) {
	plant, err := s.plants.GetByID(ctx, userID, plantID)
	if err != nil {
		return nil, err
	}

	guide, err := s.guides.Get(ctx, plant.SpeciesID)
	if err != nil {
		s.logger.Warn("guide lookup failed for plant detail",
			zap.String("species_id", plant.SpeciesID),
			zap.Error(err))
		guide = nil
	}
	return &PlantDetail{Plant: plant, Guide: guide}, nil
}

// PlantUpdate carries the editable garden record fields. Nil fields are left
// untouched.
type PlantUpdate struct {
	Nickname        *string `json:"nickname"`
	CareNotes       *string `json:"care_notes"`
	TrackedWatering *bool   `json:"tracked_watering"`
}

// Update edits the user's plant record.
func (s *GardenService) Update(ctx context.Context, userID, plantID uuid.UUID, update PlantUpdate) (*models.UserPlant, error) {
	plant, err := s.plants.GetByID(ctx, userID, plantID)
	if err != nil {
		return nil, err
	}

	if update.Nickname != nil {
		plant.Nickname = update.Nickname
	}
	if update.CareNotes != nil {
		plant.CareNotes = update.CareNotes
	}
	if update.TrackedWatering != nil {
		plant.TrackedWatering = *update.TrackedWatering
	}

	if err := s.plants.Update(ctx, plant); err != nil {
		return nil, err
	}
	return plant, nil
}

// Delete removes the plant from the user's garden. The species guide stays;
// it is shared global state.
func (s *GardenService) Delete(ctx context.Context, userID, plantID uuid.UUID) error {
	return s.plants.Delete(ctx, userID, plantID)
}

// Water records a watering now and schedules the streak update.
func (s *GardenService) Water(ctx context.Context, userID, plantID uuid.UUID) (*models.UserPlant, error) {
	plant, err := s.plants.GetByID(ctx, userID, plantID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.plants.SetLastWatered(ctx, userID, plantID, now); err != nil {
		return nil, err
	}
	plant.LastWatered = &now

	s.dispatcher.DispatchStreakUpdate(userID)
	return plant, nil
}

// AssessHealth runs the disease-detection flow on one of the user's plants.
// Gated like Analyze. When a disease is found, treatment plan generation is
// scheduled in the background and the guide's health payload fills in later.
func (s *GardenService) AssessHealth(ctx context.Context, userID, plantID uuid.UUID, imageB64 string) (*HealthResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	plant, err := s.plants.GetByID(ctx, userID, plantID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Allow(ctx, user); err != nil {
		return nil, err
	}

	assessment, err := s.identifier.AssessHealth(ctx, imageB64)
	if err != nil {
		return nil, err
	}

	result := &HealthResult{
		IsHealthy:   assessment.IsHealthy,
		Probability: assessment.Probability,
	}
	if !assessment.IsHealthy && len(assessment.Diseases) > 0 {
		disease := assessment.Diseases[0]
		result.Disease = &disease
		result.TreatmentPending = true
		s.dispatcher.DispatchHealthEnrichment(plant.SpeciesID, plant.ScientificName, disease.Name)
	}

	return result, nil
}
