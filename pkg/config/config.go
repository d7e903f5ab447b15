package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	AllowedOrigins []string

	// Database configuration
	DatabaseURL       string
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration
	DBMaxConnIdleTime time.Duration

	// Redis configuration
	RedisURL      string
	RedisPassword string
	StatementTTL  time.Duration

	// JWT configuration
	JWTSecret string

	// Accounting API configuration
	AccountingBaseURL   string
	AccountingToken     string
	StatementPageSize   int
	StatementRetryDelay time.Duration
	BalanceSyncInterval time.Duration

	// Messaging gateway configuration
	WhatsAppBaseURL string
	BroadcastDelay  time.Duration

	// UpstreamsConfigPath points at the YAML allowlist used by the proxy endpoint
	UpstreamsConfigPath string

	// System browser configuration
	SystemUsersEndpoint string
	SystemUsersToken    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		AllowedOrigins:      getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBMaxConns:          getEnvAsInt("DB_MAX_CONNS", 10),
		DBMinConns:          getEnvAsInt("DB_MIN_CONNS", 2),
		DBMaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		DBMaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 15*time.Minute),
		RedisURL:            getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		StatementTTL:        getEnvAsDuration("STATEMENT_CACHE_TTL", 5*time.Minute),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AccountingBaseURL:   getEnv("ACCOUNTING_BASE_URL", ""),
		AccountingToken:     getEnv("ACCOUNTING_TOKEN", ""),
		StatementPageSize:   getEnvAsInt("STATEMENT_PAGE_SIZE", 1000),
		StatementRetryDelay: getEnvAsDuration("STATEMENT_RETRY_DELAY", time.Second),
		BalanceSyncInterval: getEnvAsDuration("BALANCE_SYNC_INTERVAL", 30*time.Minute),
		WhatsAppBaseURL:     getEnv("WHATSAPP_BASE_URL", "https://api.ultramsg.com"),
		BroadcastDelay:      getEnvAsDuration("BROADCAST_DELAY", 3*time.Second),
		UpstreamsConfigPath: getEnv("UPSTREAMS_CONFIG_PATH", "deploy/upstreams.yaml"),
		SystemUsersEndpoint: getEnv("SYSTEM_USERS_ENDPOINT", "users:/users"),
		SystemUsersToken:    getEnv("SYSTEM_USERS_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive and DB_MIN_CONNS not negative")
	}

	if c.StatementPageSize <= 0 {
		return fmt.Errorf("STATEMENT_PAGE_SIZE must be positive")
	}

	// The accounting API is optional in development so the CRUD pages work offline
	if c.AccountingBaseURL == "" && c.IsProduction() {
		return fmt.Errorf("ACCOUNTING_BASE_URL is required in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration syntax ("1500ms", "2s")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
