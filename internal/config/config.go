// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for minimal containers

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Fields are populated from environment variables.
type Config struct {
	// Server settings
	Port int    // HTTP port to listen on
	Env  string // development, staging, production

	// Response cache
	CachePath string        // SQLite path; ":memory:" keeps nothing across restarts
	CacheTTL  time.Duration // How long a generated almanac stays fresh

	// Generator service
	LLMBaseURL        string
	LLMAPIKey         string
	LLMDayModel       string // Model used for full day almanacs
	LLMMonthModel     string // Cheaper model used for month highlights
	LLMTimeout        time.Duration
	LLMMaxRetries     int
	LLMRequestsPerMin int

	// Defaults for requests that omit a field
	DefaultLocation string
	DefaultLanguage string
	DefaultRegion   string
	DefaultTheme    string
	Timezone        string // IANA zone used to decide what "today" is

	// Scheduled jobs (cron syntax, empty disables)
	WarmCron  string
	PurgeCron string

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Load reads configuration from environment variables.
// In development, it first loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	// Server settings
	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Env = getEnv("ENV", EnvDevelopment)

	// Response cache
	cfg.CachePath = getEnv("CACHE_PATH", ":memory:")
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 24*time.Hour)

	// Generator service
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", "https://api.openai.com/v1")
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", "")
	cfg.LLMDayModel = getEnv("LLM_DAY_MODEL", "gpt-4o")
	cfg.LLMMonthModel = getEnv("LLM_MONTH_MODEL", "gpt-4o-mini")
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)
	cfg.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", 3)
	cfg.LLMRequestsPerMin = getEnvInt("LLM_REQUESTS_PER_MINUTE", 30)

	// Defaults
	cfg.DefaultLocation = getEnv("DEFAULT_LOCATION", "Hyderabad, Telangana")
	cfg.DefaultLanguage = getEnv("DEFAULT_LANGUAGE", "telugu")
	cfg.DefaultRegion = getEnv("DEFAULT_REGION", "andhra")
	cfg.DefaultTheme = getEnv("DEFAULT_THEME", "executive")
	cfg.Timezone = getEnv("TIMEZONE", "Asia/Kolkata")

	// Scheduled jobs
	cfg.WarmCron = getEnv("WARM_CRON", "5 0 * * *")
	cfg.PurgeCron = getEnv("PURGE_CRON", "@hourly")

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	// Validate port range
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	// Validate environment
	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// Valid
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production; got %q", c.Env))
	}

	if c.CachePath == "" {
		errs = append(errs, errors.New("CACHE_PATH is required"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}

	// The generator key is required in production
	if c.Env == EnvProduction && c.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required in production"))
	}
	if c.LLMDayModel == "" || c.LLMMonthModel == "" {
		errs = append(errs, errors.New("LLM_DAY_MODEL and LLM_MONTH_MODEL must be set"))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout))
	}
	if c.LLMMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("LLM_MAX_RETRIES must be at least 1, got %d", c.LLMMaxRetries))
	}
	if c.LLMRequestsPerMin < 1 {
		errs = append(errs, fmt.Errorf("LLM_REQUESTS_PER_MINUTE must be at least 1, got %d", c.LLMRequestsPerMin))
	}

	if c.DefaultLocation == "" {
		errs = append(errs, errors.New("DEFAULT_LOCATION is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q is not a valid IANA zone: %w", c.Timezone, err))
	}

	// Validate log level
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", c.LogLevel))
	}

	// Validate log format
	switch c.LogFormat {
	case "json", "text":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Location returns the configured display zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GeneratorBudget is the longest a request should wait on the generator:
// every attempt timing out, plus one more attempt's worth of time for
// backoff and rate-limiter waits.
func (c *Config) GeneratorBudget() time.Duration {
	return c.LLMTimeout * time.Duration(c.LLMMaxRetries+1)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads an environment variable as a time.Duration ("90s", "12h").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
