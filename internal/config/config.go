package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool
	// Invitation acceptance (token guessing surface)
	AcceptRequestsPerWindow int
	AcceptWindowMinutes     int
	// General API endpoints
	APIRequestsPerMinute int
	// Administrative mutations (invites, domains, members)
	AdminRequestsPerMinute int
}

// SMTPConfig holds invitation email dispatch configuration. Dispatch is
// disabled when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT validation (tokens are minted by the external identity provider)
	JWTSecret string
	JWTIssuer string

	// AppBaseURL is the public base URL used in invitation links.
	AppBaseURL string

	// BaseDomain enables the subdomain resolution heuristic
	// (<slug>.<base-domain>). Empty disables it.
	BaseDomain string

	// Invitations
	InviteTTL time.Duration

	// Sequence allocator retry tuning
	SequenceMaxAttempts int
	SequenceBaseBackoff time.Duration

	RateLimit RateLimitConfig
	SMTP      SMTPConfig
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "procurio"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "procurio"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),
		BaseDomain: getEnv("BASE_DOMAIN", ""),

		InviteTTL: getEnvDuration("INVITE_TTL", 7*24*time.Hour),

		SequenceMaxAttempts: getEnvInt("SEQUENCE_MAX_ATTEMPTS", 5),
		SequenceBaseBackoff: getEnvDuration("SEQUENCE_BASE_BACKOFF", 25*time.Millisecond),

		RateLimit: RateLimitConfig{
			Enabled:                 getEnvBool("RATE_LIMIT_ENABLED", true),
			AcceptRequestsPerWindow: getEnvInt("RATE_LIMIT_ACCEPT_REQUESTS", 10),
			AcceptWindowMinutes:     getEnvInt("RATE_LIMIT_ACCEPT_WINDOW_MINUTES", 5),
			APIRequestsPerMinute:    getEnvInt("RATE_LIMIT_API_REQUESTS_PER_MINUTE", 120),
			AdminRequestsPerMinute:  getEnvInt("RATE_LIMIT_ADMIN_REQUESTS_PER_MINUTE", 30),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			FromName: getEnv("SMTP_FROM_NAME", ""),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// HasSMTP returns true if invitation email dispatch is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
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
