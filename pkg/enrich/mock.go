package enrich

import (
	"context"

	"github.com/vichsort/PlantE/pkg/models"
)

// MockClient is a configurable mock for testing enrichment consumers.
// Set the function fields to control behavior in tests.
type MockClient struct {
	// PlantDetailsFunc is called when PlantDetails is invoked.
	// If nil, returns a minimal valid document.
	PlantDetailsFunc func(ctx context.Context, scientificName string) (*models.PlantDetails, error)

	// NutritionalDetailsFunc is called when NutritionalDetails is invoked.
	// If nil, returns a minimal valid document.
	NutritionalDetailsFunc func(ctx context.Context, scientificName string) (*models.NutritionalInfo, error)

	// DiseaseTreatmentFunc is called when DiseaseTreatment is invoked.
	// If nil, returns a minimal valid document.
	DiseaseTreatmentFunc func(ctx context.Context, scientificName, diseaseName string) (*models.DiseaseInfo, error)

	// Call tracking for verification
	PlantDetailsCalls       int
	NutritionalDetailsCalls int
	DiseaseTreatmentCalls   int
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// PlantDetails implements Client.
func (m *MockClient) PlantDetails(ctx context.Context, scientificName string) (*models.PlantDetails, error) {
	m.PlantDetailsCalls++
	if m.PlantDetailsFunc != nil {
		return m.PlantDetailsFunc(ctx, scientificName)
	}
	return &models.PlantDetails{
		PopularNames:          []string{"mock"},
		Description:           "mock description",
		WateringFrequencyDays: 7,
	}, nil
}

// NutritionalDetails implements Client.
func (m *MockClient) NutritionalDetails(ctx context.Context, scientificName string) (*models.NutritionalInfo, error) {
	m.NutritionalDetailsCalls++
	if m.NutritionalDetailsFunc != nil {
		return m.NutritionalDetailsFunc(ctx, scientificName)
	}
	return &models.NutritionalInfo{
		Recipe: models.FoodRecipe{Name: "mock recipe", Ingredients: []string{"mock"}},
	}, nil
}

// DiseaseTreatment implements Client.
func (m *MockClient) DiseaseTreatment(ctx context.Context, scientificName, diseaseName string) (*models.DiseaseInfo, error) {
	m.DiseaseTreatmentCalls++
	if m.DiseaseTreatmentFunc != nil {
		return m.DiseaseTreatmentFunc(ctx, scientificName, diseaseName)
	}
	return &models.DiseaseInfo{
		DiseaseName:   diseaseName,
		TreatmentPlan: []string{"mock step"},
	}, nil
}
