package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the viewer server
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Workflow  WorkflowConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig

	// CatalogPath points to an optional YAML project catalog.
	CatalogPath string

	// Warnings collects non-fatal problems found while loading. They are
	// reported by the caller once a logger exists.
	Warnings []string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	Environment    string
	AllowedOrigins []string
	PublicDir      string
}

// AuthConfig holds the admin shared secret and session token settings
type AuthConfig struct {
	AdminToken        string
	AdminTokenHash    string
	SessionSecret     string
	SessionExpiration time.Duration
}

// WorkflowConfig holds the CI workflow dispatch configuration
type WorkflowConfig struct {
	Token      string
	Repository string
	Workflow   string
	Ref        string
	APIBaseURL string
	Timeout    time.Duration
	RetryCount int
}

// StorageConfig selects where model files live
type StorageConfig struct {
	Backend   string
	ModelsDir string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	PublicPerMinute   int
	AdminPerMinute    int
	// TrustProxyHeaders keys clients by X-Forwarded-For/X-Real-IP. Enable
	// only behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads configuration from environment variables and .env file
// The .env file is loaded from the current working directory
func Load() (*Config, error) {
	config := &Config{}

	if err := godotenv.Load(); err != nil {
		config.warnf(".env file not found (this is OK if using environment variables): %v", err)
	}

	config.Server = ServerConfig{
		Host:           getEnv("SERVER_HOST", "0.0.0.0"),
		Port:           getEnv("SERVER_PORT", "8080"),
		ReadTimeout:    config.getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   config.getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:    config.getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		PublicDir:      getEnv("PUBLIC_DIR", "public"),
	}
	config.Auth = AuthConfig{
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
		AdminTokenHash:    getEnv("ADMIN_TOKEN_HASH", ""),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionExpiration: config.getDurationEnv("SESSION_EXPIRATION", 8*time.Hour),
	}
	config.Workflow = WorkflowConfig{
		Token:      getEnv("GITHUB_TOKEN", ""),
		Repository: getEnv("GITHUB_REPOSITORY", "openlaptop/openlaptop-viewer"),
		Workflow:   getEnv("GITHUB_WORKFLOW", "convert-and-publish.yml"),
		Ref:        getEnv("GITHUB_REF", "main"),
		APIBaseURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
		Timeout:    config.getDurationEnv("GITHUB_TIMEOUT", 15*time.Second),
		RetryCount: config.getIntEnv("GITHUB_RETRY_COUNT", 2),
	}
	config.Storage = StorageConfig{
		Backend:   getEnv("STORAGE_BACKEND", StorageFile),
		ModelsDir: getEnv("MODELS_DIR", "public/models"),
	}
	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            config.getIntEnv("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "openlaptop_viewer"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxConnections:  config.getIntEnv("DB_MAX_CONNECTIONS", 10),
		MaxIdleConns:    config.getIntEnv("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: config.getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	config.RateLimit = RateLimitConfig{
		PublicPerMinute:   config.getIntEnv("RATE_LIMIT_PER_MINUTE", 120),
		AdminPerMinute:    config.getIntEnv("ADMIN_RATE_LIMIT_PER_MINUTE", 10),
		TrustProxyHeaders: config.getBoolEnv("TRUST_PROXY_HEADERS", false),
	}
	config.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "json"),
		OutputPath: getEnv("LOG_OUTPUT_PATH", ""),
		MaxSizeMB:  config.getIntEnv("LOG_MAX_SIZE_MB", 50),
		MaxBackups: config.getIntEnv("LOG_MAX_BACKUPS", 3),
		MaxAgeDays: config.getIntEnv("LOG_MAX_AGE_DAYS", 7),
		Compress:   config.getBoolEnv("LOG_COMPRESS", true),
	}
	config.CatalogPath = getEnv("CATALOG_PATH", "")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.ModelsDir == "" {
			return fmt.Errorf("MODELS_DIR is required for file storage")
		}
	case StoragePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected %q or %q)", c.Storage.Backend, StorageFile, StoragePostgres)
	}
	if c.Auth.HasAdminSecret() && c.Auth.SessionSecret == "" && c.Server.IsProduction() {
		return fmt.Errorf("SESSION_SECRET is required in production when an admin token is configured")
	}
	if c.Workflow.Repository != "" && strings.Count(c.Workflow.Repository, "/") != 1 {
		return fmt.Errorf("GITHUB_REPOSITORY must be in owner/repo format, got %q", c.Workflow.Repository)
	}
	return nil
}

// HasAdminSecret reports whether any admin secret is configured
func (c *AuthConfig) HasAdminSecret() bool {
	return c.AdminToken != "" || c.AdminTokenHash != ""
}

// DatabaseURL returns a PostgreSQL connection string
func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Address returns the host:port the server listens on
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// IsDevelopment returns true if running in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variable access

func (c *Config) warnf(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		c.warnf("invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func (c *Config) getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		c.warnf("invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
		return defaultValue
	}
	return boolValue
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		c.warnf("invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return duration
}
