// Package config provides environment-based configuration for the platform.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the API server.
type Config struct {
	// Database configuration
	DatabaseDSN string `yaml:"database_dsn"`

	// Authentication
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`

	// Server configuration
	APIHost string `yaml:"api_host"`
	APIPort int    `yaml:"api_port"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Admin login (local credentials, bcrypt hash)
	Admin AdminConfig `yaml:"admin"`

	// External identity provider
	Identity IdentityConfig `yaml:"identity"`

	// LLM-backed listing search
	Listings ListingsConfig `yaml:"listings"`

	// Document blob storage
	Storage StorageConfig `yaml:"storage"`

	// Chat polling limits
	Chat ChatConfig `yaml:"chat"`
}

// AdminConfig holds the local administrator credentials. PasswordHash is a
// bcrypt hash, never the plaintext password.
type AdminConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// IdentityConfig holds the external identity-provider connection settings.
type IdentityConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ListingsConfig holds the listing-search API settings.
type ListingsConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig holds document blob-storage settings. The age key pair
// enables encryption at rest; with both keys empty, blobs are stored
// plaintext (local development only).
type StorageConfig struct {
	Dir           string `yaml:"dir"`
	AgeRecipient  string `yaml:"age_recipient"`
	AgeIdentity   string `yaml:"age_identity"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// ChatConfig holds poll rate-limit settings per caller.
type ChatConfig struct {
	PollRate  float64 `yaml:"poll_rate"` // requests per second
	PollBurst int     `yaml:"poll_burst"`
	PageSize  int     `yaml:"page_size"`
}

// Load reads configuration from environment variables, then overlays an
// optional YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	cfg := fromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Chat.PollRate <= 0 {
		return fmt.Errorf("chat poll rate must be positive")
	}
	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg := fromEnv()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-secret-key-min-32-chars"
	}
	return cfg
}

func fromEnv() *Config {
	return &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/relohub?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_BASE_URL", "http://localhost:9000"),
			APIKey:  getEnv("IDENTITY_API_KEY", ""),
			Timeout: getDurationEnv("IDENTITY_TIMEOUT", 10*time.Second),
		},
		Listings: ListingsConfig{
			BaseURL: getEnv("LISTINGS_BASE_URL", "https://api.anthropic.com"),
			APIKey:  getEnv("LISTINGS_API_KEY", ""),
			Model:   getEnv("LISTINGS_MODEL", "claude-sonnet-4-20250514"),
			Timeout: getDurationEnv("LISTINGS_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Dir:           getEnv("STORAGE_DIR", "/var/lib/relohub/blobs"),
			AgeRecipient:  getEnv("STORAGE_AGE_RECIPIENT", ""),
			AgeIdentity:   getEnv("STORAGE_AGE_IDENTITY", ""),
			MaxUploadSize: getInt64Env("STORAGE_MAX_UPLOAD_SIZE", 25<<20),
		},
		Chat: ChatConfig{
			PollRate:  getFloatEnv("CHAT_POLL_RATE", 1),
			PollBurst: getIntEnv("CHAT_POLL_BURST", 5),
			PageSize:  getIntEnv("CHAT_PAGE_SIZE", 100),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
