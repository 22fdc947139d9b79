// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
	"github.com/alqutdigital/doc-chunker/internal/llm"
	"github.com/alqutdigital/doc-chunker/internal/segmenter"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Chunking ChunkingConfig
	LLM      LLMConfig
	Redis    RedisConfig
	Storage  StorageConfig
	NATS     NATSConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	Environment     string
	ShutdownTimeout int
	RequestTimeout  time.Duration
}

// ChunkingConfig holds the pipeline settings for a run.
type ChunkingConfig struct {
	ChunkSize       int
	Mode            string
	Profile         string
	OracleCallDelay time.Duration
	ExactTokens     bool
	// Overrides for the profile toggles. Nil keeps the profile default.
	VerifyFidelity    *bool
	IncludeChunkCount *bool
}

// LLMConfig holds the oracle provider configuration.
type LLMConfig struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	MaxTokens         int
	Temperature       float64
	RequestsPerMinute int
}

// RedisConfig holds Redis configuration. An empty Host disables the segment cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// StorageConfig holds object storage configuration. An empty Endpoint disables uploads.
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
}

// NATSConfig holds NATS configuration. An empty URL disables event publishing.
type NATSConfig struct {
	URL        string
	ClientName string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load loads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables without validating it, so callers can
// apply overrides first.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("PORT", 8080),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Minute),
		},
		Chunking: ChunkingConfig{
			ChunkSize:         getEnvAsInt("CHUNK_SIZE", chunker.DefaultChunkSize),
			Mode:              getEnv("CHUNK_MODE", segmenter.ModeRecursive),
			Profile:           getEnv("CHUNK_PROFILE", chunker.ProfileAutomatic),
			OracleCallDelay:   getEnvAsDuration("ORACLE_CALL_DELAY", time.Second),
			ExactTokens:       getEnvAsBool("EXACT_TOKENS", false),
			VerifyFidelity:    getEnvAsOptionalBool("VERIFY_FIDELITY"),
			IncludeChunkCount: getEnvAsOptionalBool("INCLUDE_CHUNK_COUNT"),
		},
		LLM: LLMConfig{
			Provider:          getEnv("LLM_PROVIDER", string(llm.ProviderOpenRouter)),
			APIKey:            getEnv("LLM_API_KEY", getEnv("OPENROUTER_API_KEY", "")),
			Model:             getEnv("LLM_MODEL", ""),
			BaseURL:           getEnv("LLM_BASE_URL", ""),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 8192),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0),
			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 0),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("SEGMENT_CACHE_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "rag-chunks"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
		},
		NATS: NATSConfig{
			URL:        getEnv("NATS_URL", ""),
			ClientName: getEnv("NATS_CLIENT_NAME", "doc-chunker"),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "text"),
			AddSource: getEnvAsBool("LOG_ADD_SOURCE", false),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if err := segmenter.ValidateMode(c.Chunking.Mode); err != nil {
		return err
	}
	if _, err := chunker.ProfileByName(c.Chunking.Profile); err != nil {
		return err
	}
	if c.Chunking.OracleCallDelay < 0 {
		return errors.New("oracle call delay must not be negative")
	}
	if c.Chunking.Mode == segmenter.ModeAI {
		return llm.ValidateProviderConfig(c.ProviderConfig())
	}
	return nil
}

// ProviderConfig returns the llm provider configuration for the oracle.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
	}
}

// Profile resolves the configured profile and applies the toggle overrides.
func (c *Config) Profile() (chunker.Profile, error) {
	profile, err := chunker.ProfileByName(c.Chunking.Profile)
	if err != nil {
		return chunker.Profile{}, err
	}
	if c.Chunking.VerifyFidelity != nil {
		profile.VerifyFidelity = *c.Chunking.VerifyFidelity
	}
	if c.Chunking.IncludeChunkCount != nil {
		profile.IncludeChunkCount = *c.Chunking.IncludeChunkCount
	}
	return profile, nil
}

// URL returns the Redis connection URL.
func (c *RedisConfig) URL() string {
	if c.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", c.Password, c.Host, c.Port, c.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", c.Host, c.Port, c.DB)
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool { return c.Host != "" }

// Enabled reports whether an object storage endpoint is configured.
func (c *StorageConfig) Enabled() bool { return c.Endpoint != "" }

// Enabled reports whether a NATS URL is configured.
func (c *NATSConfig) Enabled() bool { return c.URL != "" }

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsOptionalBool(key string) *bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return &boolVal
		}
	}
	return nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
