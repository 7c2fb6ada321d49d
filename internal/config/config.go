package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all gateway configuration.
type Config struct {
	Server        ServerConfig
	Upstream      UpstreamConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Session       SessionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig points at the application the gateway fronts.
type UpstreamConfig struct {
	URL string
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the optional rate-limit counter store. An empty URL
// disables rate limiting entirely (every request is allowed).
type RedisConfig struct {
	URL string
}

// CacheConfig holds the tenant-lookup cache tuning. Production profiles
// carry longer TTLs than development.
type CacheConfig struct {
	ValidationTTL   time.Duration
	BusinessTTL     time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// RateLimitConfig holds per-category ceilings and the shared window.
type RateLimitConfig struct {
	AuthLimit   int
	APILimit    int
	PublicLimit int
	Window      time.Duration
}

// SessionConfig holds the session cookie contract.
type SessionConfig struct {
	CookieName string
}

// ObservabilityConfig holds logging and tracing configuration.
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from environment variables. GATEWAY_ENV selects
// the cache TTL profile: "production" gets the long TTLs, anything else the
// short development ones.
func Load() (*Config, error) {
	production := getEnv("GATEWAY_ENV", "development") == "production"

	validationTTL := "30s"
	businessTTL := "1m"
	if production {
		validationTTL = "2m"
		businessTTL = "5m"
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Upstream: UpstreamConfig{
			URL: getEnv("UPSTREAM_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "lealta"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "lealta"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: parseInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Cache: CacheConfig{
			ValidationTTL:   parseDuration("CACHE_VALIDATION_TTL", validationTTL),
			BusinessTTL:     parseDuration("CACHE_BUSINESS_TTL", businessTTL),
			MaxSize:         parseInt("CACHE_MAX_SIZE", 1000),
			CleanupInterval: parseDuration("CACHE_CLEANUP_INTERVAL", "5m"),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:   parseInt("RATELIMIT_AUTH", 10),
			APILimit:    parseInt("RATELIMIT_API", 60),
			PublicLimit: parseInt("RATELIMIT_PUBLIC", 120),
			Window:      parseDuration("RATELIMIT_WINDOW", "1m"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "session"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "lealta-gateway"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Upstream.URL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
