package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	domainconfig "ckg-backend/domain/config"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion      string
	DynamoDBTable  string
	NameIndexName  string // GSI1 - symbol name lookups
	EnableDynamoDB bool

	// SQLite configuration
	SQLitePath   string
	EnableSQLite bool

	// Embedding configuration
	OpenAIAPIKey       string
	EmbeddingModel     string
	EmbeddingQueueSize int
	EmbeddingWorkers   int

	// Query engine configuration
	CacheTTL       time.Duration
	BackendTimeout time.Duration

	// Logging
	LogLevel string

	// Rate limiting
	RateLimitPerMinute int

	// Feature flags
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:  getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "ckg-graph")),
		NameIndexName:  getEnv("NAME_INDEX_NAME", "NameIndex"),
		EnableDynamoDB: getEnvBool("ENABLE_DYNAMODB", false),

		SQLitePath:   getEnv("SQLITE_PATH", "ckg.db"),
		EnableSQLite: getEnvBool("ENABLE_SQLITE", true),

		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", ""),
		EmbeddingQueueSize: getEnvInt("EMBEDDING_QUEUE_SIZE", 1024),
		EmbeddingWorkers:   getEnvInt("EMBEDDING_WORKERS", 2),

		CacheTTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 300),

		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.EnableDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required when DynamoDB is enabled")
	}
	if c.EnableSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when SQLite is enabled")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	return nil
}

// EngineConfig builds the query engine tunables, applying any environment
// overrides on top of the defaults
func (c *Config) EngineConfig() (*domainconfig.EngineConfig, error) {
	engine := domainconfig.DefaultEngineConfig()
	engine.DefaultMaxDepth = getEnvInt("ENGINE_DEFAULT_MAX_DEPTH", engine.DefaultMaxDepth)
	engine.MaxDepthLimit = getEnvInt("ENGINE_MAX_DEPTH_LIMIT", engine.MaxDepthLimit)
	engine.MaxVisitedNodes = getEnvInt("ENGINE_MAX_VISITED_NODES", engine.MaxVisitedNodes)
	engine.SimilarityThreshold = getEnvFloat("ENGINE_SIMILARITY_THRESHOLD", engine.SimilarityThreshold)
	engine.HopDecay = getEnvFloat("ENGINE_HOP_DECAY", engine.HopDecay)

	if err := engine.Validate(); err != nil {
		return nil, err
	}
	return engine, nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
