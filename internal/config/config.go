package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data backends
const (
	BackendAirtable = "airtable"
	BackendSQL      = "sql"
	BackendMemory   = "memory"
)

// DefaultAdminJWTSecret signs admin sessions when ADMIN_JWT_SECRET is unset.
// Production refuses to start with it.
const DefaultAdminJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration
type Config struct {
	ServerPort string
	AppEnv     string

	DataBackend        string
	UseMockData        bool
	SeedDefaultContent bool

	AirtableAPIKey string
	AirtableBaseID string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	AdminUsername        string
	AdminPassword        string
	AdminPasswordHash    string
	AdminJWTSecret       string
	AdminSessionDuration time.Duration

	SESFromEmail string
	SESFromName  string
	AWSRegion    string
	NotifyEmail  string

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file (ENV_FILE, default ".env") is loaded first when present; real
// environment variables win over it.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{
		ServerPort: getEnv("PORT", "8080"),
		AppEnv:     strings.ToLower(getEnv("APP_ENV", "development")),

		DataBackend:        strings.ToLower(getEnv("DATA_BACKEND", BackendAirtable)),
		UseMockData:        getBool("USE_MOCK_DATA", false),
		SeedDefaultContent: getBool("SEED_DEFAULT_CONTENT", false),

		AirtableAPIKey: os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID: os.Getenv("AIRTABLE_BASE_ID"),

		DatabaseType: strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabasePath: getEnv("DB_PATH", "./managerclass.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		AdminUsername:        os.Getenv("ADMIN_USERNAME"),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash:    os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminJWTSecret:       getEnv("ADMIN_JWT_SECRET", DefaultAdminJWTSecret),
		AdminSessionDuration: getDuration("ADMIN_SESSION_DURATION", 24*time.Hour),

		SESFromEmail: os.Getenv("SES_FROM_EMAIL"),
		SESFromName:  getEnv("SES_FROM_NAME", "매니저 온라인 실습"),
		AWSRegion:    getEnv("AWS_REGION", "ap-northeast-2"),
		NotifyEmail:  os.Getenv("NOTIFY_EMAIL"),

		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
	}

	// Mock mode always runs on a seeded in-memory store
	if cfg.UseMockData {
		cfg.DataBackend = BackendMemory
		cfg.SeedDefaultContent = true
	}

	return cfg
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// Validate checks that the selected backend has what it needs and that
// production does not run with the default admin secret
func (c *Config) Validate() error {
	switch c.DataBackend {
	case BackendAirtable:
		if c.AirtableAPIKey == "" {
			return fmt.Errorf("AIRTABLE_API_KEY is not set")
		}
		if c.AirtableBaseID == "" {
			return fmt.Errorf("AIRTABLE_BASE_ID is not set")
		}
	case BackendSQL:
		switch c.DatabaseType {
		case "postgres", "postgresql", "mysql":
			if c.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType)
			}
		case "sqlite", "sqlite3", "":
		default:
			return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported data backend: %s", c.DataBackend)
	}

	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.IsProduction() && (c.AdminJWTSecret == "" || c.AdminJWTSecret == DefaultAdminJWTSecret) {
		return fmt.Errorf("ADMIN_JWT_SECRET must be set in production")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
