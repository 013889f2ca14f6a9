package plantid

import (
	"context"

	"github.com/vichsort/PlantE/pkg/location"
)

// MockIdentifier is a configurable mock for testing identification consumers.
type MockIdentifier struct {
	// IdentifyFunc is called when Identify is invoked.
	// If nil, returns a single mock suggestion.
	IdentifyFunc func(ctx context.Context, imageB64 string, coords location.Coordinates) (*Identification, error)

	// AssessHealthFunc is called when AssessHealth is invoked.
	// If nil, reports a healthy plant.
	AssessHealthFunc func(ctx context.Context, imageB64 string) (*HealthAssessment, error)

	// Captured inputs for verification
	LastCoords location.Coordinates

	IdentifyCalls     int
	AssessHealthCalls int
}

var _ Identifier = (*MockIdentifier)(nil)

// Identify implements Identifier.
func (m *MockIdentifier) Identify(ctx context.Context, imageB64 string, coords location.Coordinates) (*Identification, error) {
	m.IdentifyCalls++
	m.LastCoords = coords
	if m.IdentifyFunc != nil {
		return m.IdentifyFunc(ctx, imageB64, coords)
	}
	return &Identification{
		Suggestions: []Suggestion{{SpeciesID: "mock-species", Name: "Mockus plantus", Probability: 0.99}},
	}, nil
}

// AssessHealth implements Identifier.
func (m *MockIdentifier) AssessHealth(ctx context.Context, imageB64 string) (*HealthAssessment, error) {
	m.AssessHealthCalls++
	if m.AssessHealthFunc != nil {
		return m.AssessHealthFunc(ctx, imageB64)
	}
	return &HealthAssessment{IsHealthy: true, Probability: 0.97}, nil
}
