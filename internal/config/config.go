package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken      string
	GitHubGraphQLURL string

	// Storage
	StorageType string // "sqlite", "postgres" or "memory"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// Crawling
	CrawlWindowDays       int
	StaleAfter            time.Duration
	ProcessingRate        time.Duration
	ExternalRepoBatchSize int
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubToken:           getEnv("GITHUB_TOKEN", ""),
		GitHubGraphQLURL:      getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),
		StorageType:           getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:            getEnv("SQLITE_PATH", "./insights.db"),
		PostgresURL:           getEnv("POSTGRES_URL", ""),
		APIPort:               getEnv("API_PORT", "8080"),
		APIHost:               getEnv("API_HOST", "localhost"),
		CrawlWindowDays:       getEnvInt("CRAWL_WINDOW_DAYS", 5),
		StaleAfter:            time.Duration(getEnvInt("STALE_AFTER_DAYS", 7)) * 24 * time.Hour,
		ProcessingRate:        time.Duration(getEnvInt("PROCESSING_RATE_MS", 100)) * time.Millisecond,
		ExternalRepoBatchSize: getEnvInt("EXTERNAL_REPO_BATCH_SIZE", 9),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" && c.StorageType != "memory" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite', 'postgres' or 'memory'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
