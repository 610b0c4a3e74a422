// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/holdings-risk/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir                 string // Directory holding holdings.db (always absolute)
	LogLevel                string
	FinnhubAPIKey           string // Optional; tier 1 quotes are skipped without it
	DefaultBenchmark        string
	SnapshotRefreshSchedule string // Empty disables the warm refresh job
	CacheCleanupSchedule    string
	CORSOrigins             []string
	FinnhubRateLimit        float64 // Requests per second
	BasePortfolioSize       float64 // Assumed portfolio value for back-solving shares
	HTTPTimeout             time.Duration
	Port                    int
	DevMode                 bool
	LogPretty               bool
}

// scheduleParser accepts six-field specs with seconds plus descriptors like @every.
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		Port:                    getEnvAsInt("PORT", 8080),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogPretty:               getEnvAsBool("LOG_PRETTY", false),
		FinnhubAPIKey:           getEnv("FINNHUB_API_KEY", ""),
		FinnhubRateLimit:        getEnvAsFloat("FINNHUB_RATE_LIMIT", 1),
		DefaultBenchmark:        strings.ToUpper(getEnv("DEFAULT_BENCHMARK", "SPY")),
		BasePortfolioSize:       getEnvAsFloat("BASE_PORTFOLIO_SIZE", 100000),
		HTTPTimeout:             getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
		SnapshotRefreshSchedule: getEnv("SNAPSHOT_REFRESH_SCHEDULE", ""),
		CacheCleanupSchedule:    getEnv("CACHE_CLEANUP_SCHEDULE", "0 */10 * * * *"),
		CORSOrigins:             getEnvAsList("CORS_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.FinnhubRateLimit <= 0 {
		return fmt.Errorf("FINNHUB_RATE_LIMIT must be positive, got %v", c.FinnhubRateLimit)
	}
	if c.BasePortfolioSize <= 0 {
		return fmt.Errorf("BASE_PORTFOLIO_SIZE must be positive, got %v", c.BasePortfolioSize)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout)
	}
	if c.DefaultBenchmark == "" {
		return fmt.Errorf("DEFAULT_BENCHMARK must not be empty")
	}
	if _, err := scheduleParser.Parse(c.CacheCleanupSchedule); err != nil {
		return fmt.Errorf("invalid CACHE_CLEANUP_SCHEDULE %q: %w", c.CacheCleanupSchedule, err)
	}
	if c.SnapshotRefreshSchedule != "" {
		if _, err := scheduleParser.Parse(c.SnapshotRefreshSchedule); err != nil {
			return fmt.Errorf("invalid SNAPSHOT_REFRESH_SCHEDULE %q: %w", c.SnapshotRefreshSchedule, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the holdings database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "holdings.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := utils.ParseCSV(value)
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
