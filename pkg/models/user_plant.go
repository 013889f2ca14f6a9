package models

import (
	"time"

	"github.com/google/uuid"
)

// UserPlant is a user's reference to one species, with personalization.
// The (user, species) pair is unique: re-identifying a species the user
// already has updates the existing record rather than duplicating it.
type UserPlant struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"-"`
	SpeciesID       string     `json:"species_id"`
	Nickname        *string    `json:"nickname,omitempty"`
	AddedAt         time.Time  `json:"added_at"`
	LastWatered     *time.Time `json:"last_watered,omitempty"`
	CareNotes       *string    `json:"care_notes,omitempty"`
	TrackedWatering bool       `json:"tracked_watering"`
	PrimaryImageURL *string    `json:"primary_image_url,omitempty"`

	// ScientificName is joined in from the plant guide on reads.
	ScientificName string `json:"scientific_name,omitempty"`
}

// WateringReference returns the date watering schedules are computed from:
// the last watering, or the date the plant was added if it was never watered.
func (p *UserPlant) WateringReference() time.Time {
	if p.LastWatered != nil {
		return *p.LastWatered
	}
	return p.AddedAt
}
