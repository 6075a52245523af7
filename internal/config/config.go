package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Database    DatabaseConfig
	Lightspeed  LightspeedConfig
	Reconcile   ReconcileConfig
	Retry       RetryConfig

	// OperatorKeyHash is a bcrypt hash of the operator API key. Empty
	// disables authentication (local development only).
	OperatorKeyHash string
}

// LightspeedConfig is used to call the retail catalog platform.
// Env var names match the original deployment: LS_BASE_URL, LS_API_KEY, OUTLET_ID.
type LightspeedConfig struct {
	BaseURL  string
	APIKey   string
	OutletID string
}

// ReconcileConfig carries the pipeline tunables. Nothing here is ambient
// state; the values are passed explicitly into every run.
type ReconcileConfig struct {
	PageSize    int  // catalog fetch page size; sized to pull the catalog in one page normally
	Concurrency int  // resolver worker pool size
	DryRun      bool // rehearse without creating entities or submitting

	// SnapshotRefreshInterval is how often the server re-pulls the catalog
	// into the local snapshot. Zero disables the background loop.
	SnapshotRefreshInterval time.Duration
}

// RetryConfig controls the remote client's backoff policy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	CallTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "faire_ls"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Lightspeed: LightspeedConfig{
			BaseURL:  strings.TrimSuffix(strings.TrimSpace(getEnvOrViper("LS_BASE_URL", "")), "/"),
			APIKey:   strings.TrimSpace(getEnvOrViper("LS_API_KEY", "")),
			OutletID: strings.TrimSpace(getEnvOrViper("OUTLET_ID", "")),
		},
		Reconcile: ReconcileConfig{
			PageSize:    getIntOrDefault("CATALOG_PAGE_SIZE", 5000),
			Concurrency: getIntOrDefault("RESOLVE_CONCURRENCY", 4),
			DryRun:      getBoolOrDefault("DRY_RUN", false),

			SnapshotRefreshInterval: time.Duration(getIntOrDefault("CATALOG_REFRESH_MINUTES", 0)) * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: getIntOrDefault("RETRY_MAX_ATTEMPTS", 5),
			BaseDelay:   time.Duration(getIntOrDefault("RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
			Multiplier:  getFloatOrDefault("RETRY_MULTIPLIER", 2.0),
			MaxDelay:    time.Duration(getIntOrDefault("RETRY_MAX_DELAY_MS", 8000)) * time.Millisecond,
			CallTimeout: time.Duration(getIntOrDefault("REMOTE_CALL_TIMEOUT_S", 120)) * time.Second,
		},
		OperatorKeyHash: strings.TrimSpace(getEnvOrViper("OPERATOR_API_KEY_HASH", "")),
	}

	// Validate required fields
	if cfg.Lightspeed.BaseURL == "" {
		return nil, fmt.Errorf("LS_BASE_URL is required")
	}
	if cfg.Lightspeed.APIKey == "" {
		return nil, fmt.Errorf("LS_API_KEY is required")
	}
	if cfg.Lightspeed.OutletID == "" {
		return nil, fmt.Errorf("OUTLET_ID is required")
	}
	if cfg.Reconcile.PageSize < 1 {
		return nil, fmt.Errorf("CATALOG_PAGE_SIZE must be positive")
	}
	if cfg.Reconcile.Concurrency < 1 {
		return nil, fmt.Errorf("RESOLVE_CONCURRENCY must be positive")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	raw := strings.ToLower(getEnvOrViper(key, ""))
	switch raw {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		return defaultValue
	}
}
