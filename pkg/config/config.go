package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the PlantE backend.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (fast cache tier + rate limiting)
	Redis RedisConfig `yaml:"redis"`

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// PlantID is the external vision classifier (Plant.id v3).
	PlantID PlantIDConfig `yaml:"plant_id"`

	// Enrichment is the generative model used to populate plant guides.
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Push is the Firebase Cloud Messaging transport.
	Push PushConfig `yaml:"push"`

	// RateLimit gates expensive generation-triggering endpoints.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Scheduler controls periodic sweep cadence.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// MigrationsPath is the directory containing SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"plante"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"plante"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds fast-tier store configuration.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AuthConfig holds JWT signing configuration.
type AuthConfig struct {
	// JWTSecret signs HS256 access tokens. Secret - env only.
	JWTSecret string `yaml:"-" env:"JWT_SECRET"`

	// TokenTTL is the access token lifetime.
	TokenTTL time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"72h"`
}

// PlantIDConfig holds Plant.id API client configuration.
type PlantIDConfig struct {
	BaseURL string        `yaml:"base_url" env:"PLANT_ID_BASE_URL" env-default:"https://plant.id/api/v3"`
	APIKey  string        `yaml:"-" env:"PLANT_ID_API_KEY"` // Secret - not in YAML
	Timeout time.Duration `yaml:"timeout" env:"PLANT_ID_TIMEOUT" env-default:"30s"`
}

// EnrichmentConfig holds the generative model endpoint configuration.
// Defaults target Gemini's OpenAI-compatible endpoint.
type EnrichmentConfig struct {
	BaseURL string        `yaml:"base_url" env:"ENRICHMENT_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta/openai"`
	Model   string        `yaml:"model" env:"ENRICHMENT_MODEL" env-default:"gemini-2.5-flash"`
	APIKey  string        `yaml:"-" env:"GEMINI_API_KEY"` // Secret - not in YAML
	Timeout time.Duration `yaml:"timeout" env:"ENRICHMENT_TIMEOUT" env-default:"60s"`
}

// PushConfig holds Firebase Cloud Messaging configuration.
type PushConfig struct {
	// CredentialsFile points at a Firebase service account JSON file.
	// Empty disables push delivery (tasks log and move on).
	CredentialsFile string `yaml:"credentials_file" env:"FIREBASE_CREDENTIALS_FILE" env-default:""`
}

// RateLimitConfig holds the daily premium-feature gate settings.
type RateLimitConfig struct {
	// FreeDailyLimit is how many gated calls a free user gets per UTC day.
	FreeDailyLimit int `yaml:"free_daily_limit" env:"FREE_DAILY_LIMIT" env-default:"3"`
}

// SchedulerConfig controls the cadence of periodic sweeps.
type SchedulerConfig struct {
	WateringInterval   time.Duration `yaml:"watering_interval" env:"SCHEDULER_WATERING_INTERVAL" env-default:"24h"`
	StaleTokenInterval time.Duration `yaml:"stale_token_interval" env:"SCHEDULER_STALE_TOKEN_INTERVAL" env-default:"168h"`
	LongevityInterval  time.Duration `yaml:"longevity_interval" env:"SCHEDULER_LONGEVITY_INTERVAL" env-default:"24h"`

	// RetryDelay is the fixed delay between background task attempts.
	RetryDelay time.Duration `yaml:"retry_delay" env:"SCHEDULER_RETRY_DELAY" env-default:"5m"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.PlantID.APIKey == "" {
		return fmt.Errorf("PLANT_ID_API_KEY must be set")
	}
	if c.Enrichment.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if c.RateLimit.FreeDailyLimit < 1 {
		return fmt.Errorf("free_daily_limit must be at least 1")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
