// Package enrich calls a generative model to produce structured botanical,
// nutritional and treatment documents for a plant species. Responses are
// parsed into typed structs and validated at the client boundary; a
// validation failure is a generation error, not a silent pass-through.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/models"
)

// Client defines the generative enrichment operations.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// PlantDetails generates the botanical/care document for a species.
	PlantDetails(ctx context.Context, scientificName string) (*models.PlantDetails, error)

	// NutritionalDetails generates the nutritional/medicinal document.
	NutritionalDetails(ctx context.Context, scientificName string) (*models.NutritionalInfo, error)

	// DiseaseTreatment generates a treatment plan for a diagnosed disease.
	DiseaseTreatment(ctx context.Context, scientificName, diseaseName string) (*models.DiseaseInfo, error)
}

// Config holds configuration for creating an enrichment client.
type Config struct {
	BaseURL string        // OpenAI-compatible endpoint
	Model   string        // Model name, e.g. "gemini-2.5-flash"
	APIKey  string
	Timeout time.Duration // Per-call upper bound; 0 means 60s
}

// client talks to an OpenAI-compatible endpoint.
type client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// Ensure client implements Client at compile time.
var _ Client = (*client)(nil)

// NewClient creates a new enrichment client.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &client{
		api:     openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger.Named("enrich"),
	}, nil
}

const systemMessage = "Você é um botânico especialista. Responda sempre com um único objeto JSON válido, sem texto adicional, seguindo exatamente o esquema pedido."

func (c *client) PlantDetails(ctx context.Context, scientificName string) (*models.PlantDetails, error) {
	prompt := fmt.Sprintf(
		"Minha planta, de nome científico '%s', está saudável. "+
			"Responda em português do Brasil com um JSON no formato: "+
			`{"popular_names": [string], "description": string, `+
			`"taxonomy": {"class": string, "genus": string, "order": string, "family": string, "phylum": string}, `+
			`"is_edible": bool, "watering_frequency_days": int, "season": string, `+
			`"sunlight": string, "soil": string, `+
			`"origin": {"country": string, "region": string, "habitat": string}}`,
		scientificName,
	)

	var details models.PlantDetails
	if err := c.generate(ctx, "plant_details", prompt, &details); err != nil {
		return nil, err
	}
	if err := details.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plant details for %q: %w", scientificName, err)
	}
	return &details, nil
}

func (c *client) NutritionalDetails(ctx context.Context, scientificName string) (*models.NutritionalInfo, error) {
	prompt := fmt.Sprintf(
		"Minha planta, de nome científico '%s', está saudável. "+
			"Responda em português do Brasil com um JSON no formato: "+
			`{"tea": [string], "recipe": {"name": string, "ingredients": [string]}, `+
			`"medicinal": {"how_to_use": string, "benefits": [string]}, "seasoning": string}. `+
			"Cubra: chá (como preparar e benefícios), uma receita com a planta, "+
			"usos medicinais e em que pratos ela combina como tempero.",
		scientificName,
	)

	var info models.NutritionalInfo
	if err := c.generate(ctx, "nutritional_details", prompt, &info); err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid nutritional details for %q: %w", scientificName, err)
	}
	return &info, nil
}

func (c *client) DiseaseTreatment(ctx context.Context, scientificName, diseaseName string) (*models.DiseaseInfo, error) {
	prompt := fmt.Sprintf(
		"Minha planta, de nome científico '%s', foi diagnosticada com a doença '%s'. "+
			"Responda em português do Brasil com um JSON no formato: "+
			`{"disease_name": string, "symptoms": [string], "treatment_plan": [string], "recovery_time": string}. `+
			"Inclua os sintomas visíveis, um plano de tratamento prático e o tempo estimado de recuperação.",
		scientificName, diseaseName,
	)

	var info models.DiseaseInfo
	if err := c.generate(ctx, "disease_treatment", prompt, &info); err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid treatment plan for %q: %w", diseaseName, err)
	}
	return &info, nil
}

// generate runs one chat completion and unmarshals the extracted JSON into out.
func (c *client) generate(ctx context.Context, kind, prompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("enrichment request",
		zap.String("kind", kind),
		zap.String("model", c.model))

	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("enrichment request failed",
			zap.String("kind", kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("enrichment call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("no choices in enrichment response")
	}

	jsonStr, err := ExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return fmt.Errorf("enrichment response is not valid JSON: %w", err)
	}

	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("failed to decode %s document: %w", kind, err)
	}

	c.logger.Info("enrichment request completed",
		zap.String("kind", kind),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
