// Package config handles application configuration loading from environment
// variables and an optional .env file. It provides a centralized Config
// struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"techbar/internal/catalog"
)

// Category source kinds.
const (
	SourcePlatform = "platform"
	SourcePostgres = "postgres"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel string

	// Catalog settings
	KappSlug             string
	CatalogSource        string // "platform" or "postgres"
	CatalogIncludeHidden bool
	CatalogCacheTTL      time.Duration
	CatalogSettingsFile  string
	Catalog              catalog.Options

	// Platform API
	PlatformURL      string
	PlatformUsername string
	PlatformPassword string
	PlatformTimeout  time.Duration

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// S3-compatible snapshot export
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// Overhead display
	TechBarIDs       []string
	AppointmentKapp  string
	AppointmentForm  string
	OverheadInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Variables from ENV_FILE (default
// ".env") are loaded first when the file exists; real environment
// variables win. Returns an error if critical values are missing or
// invalid.
func Load() (*Config, error) {
	envFile := envOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Host:     envOrDefault("APP_HOST", "0.0.0.0"),
		Port:     envOrDefault("APP_PORT", "8080"),
		Env:      envOrDefault("APP_ENV", "development"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		KappSlug:             envOrDefault("KAPP_SLUG", "services"),
		CatalogSource:        strings.ToLower(envOrDefault("CATALOG_SOURCE", SourcePlatform)),
		CatalogIncludeHidden: cast.ToBool(os.Getenv("CATALOG_INCLUDE_HIDDEN")),
		CatalogCacheTTL:      cast.ToDuration(envOrDefault("CATALOG_CACHE_TTL", "5m")),
		CatalogSettingsFile:  os.Getenv("CATALOG_SETTINGS_FILE"),

		PlatformURL:      strings.TrimRight(envOrDefault("PLATFORM_URL", "http://localhost:8081/kinetic"), "/"),
		PlatformUsername: os.Getenv("PLATFORM_USERNAME"),
		PlatformPassword: os.Getenv("PLATFORM_PASSWORD"),
		PlatformTimeout:  cast.ToDuration(envOrDefault("PLATFORM_TIMEOUT", "15s")),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "techbar"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "techbar"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "techbar-snapshots"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		TechBarIDs:       splitList(os.Getenv("TECHBAR_IDS")),
		AppointmentKapp:  envOrDefault("APPOINTMENT_KAPP", "tech-bar"),
		AppointmentForm:  envOrDefault("APPOINTMENT_FORM", "appointment"),
		OverheadInterval: cast.ToDuration(envOrDefault("OVERHEAD_INTERVAL", "30s")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts, err := LoadCatalogOptions(cfg.CatalogSettingsFile)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = opts

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CatalogSource {
	case SourcePlatform, SourcePostgres:
	default:
		return fmt.Errorf("CATALOG_SOURCE must be %q or %q, got %q", SourcePlatform, SourcePostgres, c.CatalogSource)
	}
	if c.CatalogCacheTTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be a positive duration")
	}
	if c.PlatformTimeout <= 0 {
		return fmt.Errorf("PLATFORM_TIMEOUT must be a positive duration")
	}
	if c.OverheadInterval <= 0 {
		return fmt.Errorf("OVERHEAD_INTERVAL must be a positive duration")
	}

	if c.Env == "production" {
		if c.CatalogSource == SourcePostgres && c.DBPassword == "changeme" {
			return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if c.CatalogSource == SourcePlatform && os.Getenv("PLATFORM_URL") == "" {
			return fmt.Errorf("PLATFORM_URL must be set in production")
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
