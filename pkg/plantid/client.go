// Package plantid is a client for the Plant.id (Kindwise) v3 API: species
// identification and health assessment from base64-encoded images.
package plantid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/location"
)

// Identifier defines the vision classifier operations.
// Use this interface for dependency injection to enable mocking in tests.
type Identifier interface {
	// Identify classifies the plant on the image and returns ranked
	// species candidates, best first.
	Identify(ctx context.Context, imageB64 string, coords location.Coordinates) (*Identification, error)

	// AssessHealth detects diseases on the imaged plant.
	AssessHealth(ctx context.Context, imageB64 string) (*HealthAssessment, error)
}

// Suggestion is one ranked species candidate.
type Suggestion struct {
	SpeciesID   string  `json:"species_id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// Identification is the classifier result, candidates ranked best first.
type Identification struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Best returns the top-ranked candidate.
func (id *Identification) Best() (Suggestion, error) {
	if len(id.Suggestions) == 0 {
		return Suggestion{}, apperrors.ErrNoIdentificationMatches
	}
	return id.Suggestions[0], nil
}

// DiseaseSuggestion is one ranked disease candidate.
type DiseaseSuggestion struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// HealthAssessment is the disease-detection result.
type HealthAssessment struct {
	IsHealthy   bool                `json:"is_healthy"`
	Probability float64             `json:"probability"`
	Diseases    []DiseaseSuggestion `json:"diseases"`
}

// Config holds Plant.id client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // 0 means 30s
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

var _ Identifier = (*client)(nil)

// NewClient creates a new Plant.id API client.
func NewClient(cfg *Config, logger *zap.Logger) (Identifier, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("plantid"),
	}, nil
}

// Wire format of the v3 API.
type identifyRequest struct {
	Images        []string `json:"images"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	SimilarImages bool     `json:"similar_images"`
}

type healthRequest struct {
	Images []string `json:"images"`
	Health bool     `json:"health"`
}

type apiSuggestion struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Details     struct {
		EntityID string `json:"entity_id"`
	} `json:"details"`
}

type identifyResponse struct {
	Result struct {
		Classification struct {
			Suggestions []apiSuggestion `json:"suggestions"`
		} `json:"classification"`
	} `json:"result"`
}

type healthResponse struct {
	Result struct {
		IsHealthy struct {
			Binary      bool    `json:"binary"`
			Probability float64 `json:"probability"`
		} `json:"is_healthy"`
		Disease struct {
			Suggestions []struct {
				Name        string  `json:"name"`
				Probability float64 `json:"probability"`
			} `json:"suggestions"`
		} `json:"disease"`
	} `json:"result"`
}

func (c *client) Identify(ctx context.Context, imageB64 string, coords location.Coordinates) (*Identification, error) {
	req := identifyRequest{
		Images:        []string{imageB64},
		Latitude:      coords.Lat,
		Longitude:     coords.Lon,
		SimilarImages: true,
	}

	var resp identifyResponse
	if err := c.post(ctx, "identification", req, &resp); err != nil {
		return nil, err
	}

	result := &Identification{}
	for _, s := range resp.Result.Classification.Suggestions {
		speciesID := s.Details.EntityID
		if speciesID == "" {
			speciesID = s.ID
		}
		result.Suggestions = append(result.Suggestions, Suggestion{
			SpeciesID:   speciesID,
			Name:        s.Name,
			Probability: s.Probability,
		})
	}
	return result, nil
}

func (c *client) AssessHealth(ctx context.Context, imageB64 string) (*HealthAssessment, error) {
	req := healthRequest{
		Images: []string{imageB64},
		Health: true,
	}

	var resp healthResponse
	if err := c.post(ctx, "health_assessment", req, &resp); err != nil {
		return nil, err
	}

	result := &HealthAssessment{
		IsHealthy:   resp.Result.IsHealthy.Binary,
		Probability: resp.Result.IsHealthy.Probability,
	}
	for _, s := range resp.Result.Disease.Suggestions {
		result.Diseases = append(result.Diseases, DiseaseSuggestion{
			Name:        s.Name,
			Probability: s.Probability,
		})
	}
	return result, nil
}

func (c *client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("plant.id request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return fmt.Errorf("plant.id request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies may echo image data; keep a bounded prefix for the logs.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("plant.id returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return fmt.Errorf("plant.id %s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode plant.id response: %w", err)
	}

	c.logger.Debug("plant.id request completed",
		zap.String("endpoint", endpoint),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
