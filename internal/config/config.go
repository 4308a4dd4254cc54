package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

var (
	validBackends  = []string{"memory", "sqlite", "postgres", "mongo"}
	validAuthModes = []string{"google", "dev"}
	validLogLevels = []string{"debug", "info", "warn", "warning", "error"}
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// SQL backends
	SQLiteDBPath string
	PostgresDSN  string

	// Document store
	MongoURI      string
	MongoDatabase string

	// AMQP, empty URL disables ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Identity
	AuthMode                string
	GoogleOAuthClientID     string
	GoogleOAuthClientSecret string
	GoogleOAuthRedirectURL  string
	DevUserID               string
	SessionTTL              time.Duration
	SessionCookieSecure     bool

	// Presentation
	SnapshotDir     string
	Currency        string
	RateLimitPerMin int

	// Sheets mirror (worker)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", "memory")),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "budget"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		AuthMode:                strings.ToLower(getEnv("AUTH_MODE", "dev")),
		GoogleOAuthClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleOAuthClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		GoogleOAuthRedirectURL:  getEnv("GOOGLE_OAUTH_REDIRECT_URL", "http://localhost:8081/auth/callback"),
		DevUserID:               getEnv("DEV_USER_ID", "dev-user"),
		SessionTTL:              getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionCookieSecure:     getEnvBool("SESSION_COOKIE_SECURE", false),

		SnapshotDir:     getEnv("SNAPSHOT_DIR", ""),
		Currency:        strings.ToUpper(getEnv("CURRENCY", money.USD)),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			errors = append(errors, fmt.Sprintf("invalid MONGO_URI '%s': scheme must be 'mongodb' or 'mongodb+srv'", c.MongoURI))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MONGO_DATABASE cannot be empty when using mongo backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.AuthMode {
	case "google":
		if c.GoogleOAuthClientID == "" || c.GoogleOAuthClientSecret == "" {
			errors = append(errors, "GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET are required when AUTH_MODE=google")
		}
		if u, err := url.Parse(c.GoogleOAuthRedirectURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid GOOGLE_OAUTH_REDIRECT_URL '%s': must be an absolute URL", c.GoogleOAuthRedirectURL))
		}
	case "dev":
		if strings.TrimSpace(c.DevUserID) == "" {
			errors = append(errors, "DEV_USER_ID cannot be empty when AUTH_MODE=dev")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid auth mode '%s': must be one of %v", c.AuthMode, validAuthModes))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency code '%s'", c.Currency))
	}

	if c.RateLimitPerMin < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMin))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMirror checks the settings the sheets mirror worker needs on top
// of the common ones.
func (c *Config) ValidateMirror() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the mirror worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the mirror worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("mirror configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
