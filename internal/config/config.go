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

	"expensemanager/internal/scheduler"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigin  string
	RateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath  string
	PostgresURL   string
	MongoURI      string
	MongoDatabase string

	// AMQP (optional; notifications fall back to the log when unset)
	AMQPURL         string
	AMQPExchange    string
	AMQPNotifyQueue string

	// Sessions
	SessionTTL time.Duration
	// SessionCacheSize of 0 disables the in-process session cache.
	SessionCacheSize int
	SessionCacheTTL  time.Duration

	// Daily summary
	SummaryRunAt string
	SummaryRole  string

	// Logging
	LogLevel string
}

var (
	validBackends  = []string{"memory", "sqlite", "postgres", "mongo"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/expenses.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "expense_manager"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPNotifyQueue: getEnv("AMQP_NOTIFY_QUEUE", "expense_notifications"),

		SessionTTL:       getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 1024),
		SessionCacheTTL:  getEnvDuration("SESSION_CACHE_TTL", time.Minute),

		SummaryRunAt: getEnv("SUMMARY_RUN_AT", "00:00"),
		SummaryRole:  getEnv("SUMMARY_ROLE", "System Manager"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if msg := checkURL("POSTGRES_URL", c.PostgresURL, "postgres", "postgresql"); msg != "" {
			errors = append(errors, msg)
		}
	case "mongo":
		if msg := checkURL("MONGO_URI", c.MongoURI, "mongodb", "mongodb+srv"); msg != "" {
			errors = append(errors, msg)
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MONGO_DATABASE cannot be empty when using mongo backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPNotifyQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate CORS origin
	if u, err := url.Parse(c.CORSAllowedOrigin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid CORS origin '%s': must be an http(s) origin", c.CORSAllowedOrigin))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.SessionCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must not be negative", c.SessionCacheSize))
	}
	if c.SessionCacheSize > 0 && c.SessionCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid session cache TTL %v: must be positive", c.SessionCacheTTL))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if _, _, err := scheduler.ParseRunAt(c.SummaryRunAt); err != nil {
		errors = append(errors, err.Error())
	}
	if strings.TrimSpace(c.SummaryRole) == "" {
		errors = append(errors, "summary role cannot be empty")
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func checkURL(key, raw string, schemes ...string) string {
	if raw == "" {
		return fmt.Sprintf("%s is required for this backend", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid %s: %v", key, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Sprintf("invalid %s scheme '%s': must be one of %v", key, u.Scheme, schemes)
	}
	return ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
