package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TenantsFile       string
	Tenants           []TenantConfig
	LogLevel          string
	Environment       string
	CronSpecReminder  string // Cadence of the reminder run when the process hosts its own trigger
	RunOnce           bool
	TenantConcurrency int
	TenantTimeout     time.Duration
	QueryTimeout      time.Duration
	RunTimeout        time.Duration
	HTTPAddr          string
	NatsURL           string
	NatsSubject       string
	Location          *time.Location
}

// Load reads configuration from environment variables and .env file (if present),
// then the tenants file it points at.
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TenantsFile = getEnv("TENANTS_FILE", "tenants.yaml")
	cfg.Tenants, err = LoadTenants(cfg.TenantsFile)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	cfg.CronSpecReminder = getEnv("CRON_SPEC_REMINDER_RUN", "0 * * * *") // Default: hourly

	cfg.RunOnce, err = strconv.ParseBool(getEnv("RUN_ONCE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_ONCE: %w", err)
	}

	cfg.TenantConcurrency, err = strconv.Atoi(getEnv("TENANT_CONCURRENCY", "4"))
	if err != nil || cfg.TenantConcurrency < 1 {
		return nil, fmt.Errorf("invalid TENANT_CONCURRENCY: must be a positive integer")
	}

	if cfg.TenantTimeout, err = getEnvDuration("TENANT_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = getEnvDuration("QUERY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getEnvDuration("RUN_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":9090")
	cfg.NatsURL = os.Getenv("NATS_URL")
	cfg.NatsSubject = getEnv("NATS_SUBJECT", "reminders.runs.completed")

	cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of key, or defaultVal when unset or empty.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q is not a positive duration", key, val)
	}
	return d, nil
}
