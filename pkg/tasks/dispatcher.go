package tasks

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/push"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/services"
)

// Dispatcher turns service-level triggers into queued tasks. It implements
// services.Dispatcher.
type Dispatcher struct {
	queue        *Queue
	guides       *cache.GuideCache
	enricher     enrich.Client
	users        repositories.UserRepository
	achievements *services.AchievementService
	sender       push.Sender
	logger       *zap.Logger
}

// NewDispatcher creates the dispatcher over a running queue.
func NewDispatcher(
	queue *Queue,
	guides *cache.GuideCache,
	enricher enrich.Client,
	users repositories.UserRepository,
	achievements *services.AchievementService,
	sender push.Sender,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		queue:        queue,
		guides:       guides,
		enricher:     enricher,
		users:        users,
		achievements: achievements,
		sender:       sender,
		logger:       logger.Named("dispatcher"),
	}
}

var _ services.Dispatcher = (*Dispatcher)(nil)

// DispatchEnrichment implements services.Dispatcher.
func (d *Dispatcher) DispatchEnrichment(speciesID, scientificName string, notifyUserID uuid.UUID) {
	d.queue.Enqueue(&EnrichmentTask{
		SpeciesID:      speciesID,
		ScientificName: scientificName,
		NotifyUserID:   notifyUserID,
		Guides:         d.guides,
		Users:          d.users,
		Achievements:   d.achievements,
		Sender:         d.sender,
		Logger:         d.logger,
	})
}

// DispatchHealthEnrichment implements services.Dispatcher.
func (d *Dispatcher) DispatchHealthEnrichment(speciesID, scientificName, diseaseName string) {
	d.queue.Enqueue(&HealthEnrichmentTask{
		SpeciesID:      speciesID,
		ScientificName: scientificName,
		DiseaseName:    diseaseName,
		Enricher:       d.enricher,
		Guides:         d.guides,
		Logger:         d.logger,
	})
}

// DispatchStreakUpdate implements services.Dispatcher.
func (d *Dispatcher) DispatchStreakUpdate(userID uuid.UUID) {
	d.queue.Enqueue(NewStreakUpdateTask(userID, d.users, d.achievements, d.logger))
}
