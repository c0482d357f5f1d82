package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Identity hashing. Reporter contact addresses are stored only as
	// keyed one-way hashes; the key must be stable per deployment or
	// registered reporters become unresolvable.
	ContactHashSecret string

	// Case database
	DatabaseURL string

	// Optional Redis cache for status lookups
	RedisAddr       string
	CacheTTLSeconds int

	// Optional anonymized-record archive (Azure Blob Storage)
	ArchiveAccount   string
	ArchiveContainer string

	// Downstream alert-scheduler endpoint
	AlertSchedulerURL string

	// Intake digest configuration
	DigestSchedule string // "daily" or "weekly"
	DigestEmail    string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		ContactHashSecret: getEnv("CONTACT_HASH_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		CacheTTLSeconds: getIntEnv("CACHE_TTL_SECONDS", 300),

		ArchiveAccount:   getEnv("ARCHIVE_STORAGE_ACCOUNT", ""),
		ArchiveContainer: getEnv("ARCHIVE_STORAGE_CONTAINER", "anonymized-reports"),

		AlertSchedulerURL: getEnv("ALERT_SCHEDULER_URL", ""),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", "daily"),
		DigestEmail:    getEnv("DIGEST_EMAIL", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getIntEnv("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ContactHashSecret == "" {
		return fmt.Errorf("CONTACT_HASH_SECRET is required")
	}

	if c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.DigestEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when DIGEST_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
