package models

import (
	"fmt"
	"time"
)

// PlantGuide is the shared, de-duplicated global cache entry for one species.
// Keyed by the externally-assigned species identifier. Rows are created on
// first sighting and mutated only by the enrichment pipeline; the core never
// deletes them.
type PlantGuide struct {
	SpeciesID      string           `json:"species_id"`
	ScientificName string           `json:"scientific_name"`
	Details        *PlantDetails    `json:"details,omitempty"`
	Nutritional    *NutritionalInfo `json:"nutritional,omitempty"`
	Health         *DiseaseInfo     `json:"health,omitempty"`
	LastEnrichedAt *time.Time       `json:"last_enriched_at,omitempty"`
}

// Enriched reports whether both core enrichment payloads are present.
// The health payload is optional and does not count.
func (g *PlantGuide) Enriched() bool {
	return g.Details != nil && g.Nutritional != nil
}

// OriginInfo describes where a plant comes from.
type OriginInfo struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	Habitat string `json:"habitat"`
}

// TaxonomyInfo is the plant's taxonomic classification.
type TaxonomyInfo struct {
	Class  string `json:"class"`
	Genus  string `json:"genus"`
	Order  string `json:"order"`
	Family string `json:"family"`
	Phylum string `json:"phylum"`
}

// PlantDetails is the botanical/care document generated for a species.
type PlantDetails struct {
	PopularNames          []string     `json:"popular_names"`
	Description           string       `json:"description"`
	Taxonomy              TaxonomyInfo `json:"taxonomy"`
	IsEdible              bool         `json:"is_edible"`
	WateringFrequencyDays int          `json:"watering_frequency_days"`
	Season                string       `json:"season"`
	Sunlight              string       `json:"sunlight"`
	Soil                  string       `json:"soil"`
	Origin                OriginInfo   `json:"origin"`
}

// Validate checks that the generated document carries the required fields.
// A failure here is a generation error, not a silent pass-through.
func (d *PlantDetails) Validate() error {
	if d.Description == "" {
		return fmt.Errorf("plant details missing description")
	}
	if len(d.PopularNames) == 0 {
		return fmt.Errorf("plant details missing popular names")
	}
	if d.WateringFrequencyDays <= 0 {
		return fmt.Errorf("plant details missing watering frequency")
	}
	return nil
}

// FoodRecipe is one recipe that uses the plant.
type FoodRecipe struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
}

// MedicinalUse describes the plant's medicinal application.
type MedicinalUse struct {
	HowToUse string   `json:"how_to_use"`
	Benefits []string `json:"benefits"`
}

// NutritionalInfo is the nutritional/medicinal document generated for a species.
type NutritionalInfo struct {
	Tea       []string     `json:"tea"`
	Recipe    FoodRecipe   `json:"recipe"`
	Medicinal MedicinalUse `json:"medicinal"`
	Seasoning string       `json:"seasoning"`
}

// Validate checks that the generated document carries the required fields.
func (n *NutritionalInfo) Validate() error {
	if n.Recipe.Name == "" {
		return fmt.Errorf("nutritional info missing recipe")
	}
	return nil
}

// DiseaseInfo is a treatment plan for one diagnosed disease. A new diagnosis
// overwrites the previous plan; no history is kept.
type DiseaseInfo struct {
	DiseaseName   string   `json:"disease_name"`
	Symptoms      []string `json:"symptoms"`
	TreatmentPlan []string `json:"treatment_plan"`
	RecoveryTime  string   `json:"recovery_time"`
}

// Validate checks that the generated document carries the required fields.
func (d *DiseaseInfo) Validate() error {
	if d.DiseaseName == "" {
		return fmt.Errorf("disease info missing disease name")
	}
	if len(d.TreatmentPlan) == 0 {
		return fmt.Errorf("disease info missing treatment plan")
	}
	return nil
}
