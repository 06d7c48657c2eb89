package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	apperrors "mnemo/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j (snapshot persistence)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// AI
	LiteLLMURL       string
	ModelID          string
	OpenRouterAPIKey string

	// Discord
	DiscordBotToken string

	// Memory
	AgentName          string        // Display name of the self-entity
	SelfContextMaxLen  int           // Character cap for the compiled self context
	SessionWindowSize  int           // Exchanges kept in a session context window
	StalenessHorizon   time.Duration // Entities older than this are flagged stale
	ArchiveRetention   time.Duration // Superseded observations older than this are archived
	MaintenanceEvery   time.Duration // Interval between maintenance sweeps
	ExtractionDisabled bool          // Skip LLM extraction entirely (manual-only memory)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		Neo4jURI:           getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:          getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:      getEnv("NEO4J_PASSWORD", "password"),
		LiteLLMURL:         getEnv("LITELLM_URL", "http://localhost:4000"),
		ModelID:            getEnv("MODEL_ID", "openrouter/anthropic/claude-3.5-sonnet"),
		OpenRouterAPIKey:   getEnv("OPENROUTER_API_KEY", ""),
		DiscordBotToken:    getEnv("DISCORD_BOT_TOKEN", ""),
		AgentName:          getEnv("AGENT_NAME", "Mnemo"),
		SelfContextMaxLen:  getEnvInt("SELF_CONTEXT_MAX_LEN", 3000),
		SessionWindowSize:  getEnvInt("SESSION_WINDOW_SIZE", 10),
		StalenessHorizon:   getEnvDuration("STALENESS_HORIZON", 7*24*time.Hour),
		ArchiveRetention:   getEnvDuration("ARCHIVE_RETENTION", 30*24*time.Hour),
		MaintenanceEvery:   getEnvDuration("MAINTENANCE_EVERY", time.Hour),
		ExtractionDisabled: getEnvBool("EXTRACTION_DISABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.LiteLLMURL == "" && !c.ExtractionDisabled {
		return apperrors.NewConfigMissingRequired("LITELLM_URL")
	}
	if c.ModelID == "" && !c.ExtractionDisabled {
		return apperrors.NewConfigMissingRequired("MODEL_ID")
	}
	if c.SelfContextMaxLen <= 0 {
		return fmt.Errorf("SELF_CONTEXT_MAX_LEN must be positive")
	}
	if c.SessionWindowSize <= 0 {
		return fmt.Errorf("SESSION_WINDOW_SIZE must be positive")
	}
	// Neo4j credentials and Discord token are optional; the store runs in-memory without them
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
