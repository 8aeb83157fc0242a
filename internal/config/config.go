package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	DBMaxConns     int32
	DBMinConns     int32
	Environment    string
	LogLevel       string
	EnableMetrics  bool
	CookieSecure   bool
	RequestTimeout time.Duration
	AllowedOrigins []string
	ImportMapping  string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:    getEnv("DB_DSN", ""),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DBMaxConns:     int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:     int32(getEnvInt("DB_MIN_CONNS", 1)),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		EnableMetrics:  getEnv("ENABLE_METRICS", "false") == "true",
		CookieSecure:   getEnv("COOKIE_SECURE", "false") == "true",
		RequestTimeout: 15 * time.Second,
		AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		ImportMapping:  getEnv("IMPORT_MAPPING", ""),
		JWTSecret:      getEnv("JWT_SECRET", defaultJWTSecret),
		JWTIssuer:      getEnv("JWT_ISS", "rdw-inventory-api"),
		JWTAudience:    getEnv("JWT_AUD", "rdw-inventory-api"),
		JWTExpiry:      24 * time.Hour, // Default to 24 hours
	}

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			config.JWTExpiry = expiry
		}
	}
	if timeoutStr := os.Getenv("REQUEST_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.RequestTimeout = timeout
		}
	}

	return config
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
	}
	if c.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISS is required"))
	}
	if c.JWTAudience == "" {
		errs = append(errs, errors.New("JWT_AUD is required"))
	}
	if c.JWTExpiry < time.Minute {
		errs = append(errs, fmt.Errorf("JWT_EXPIRY must be at least 1m, got %v", c.JWTExpiry))
	}
	if c.JWTExpiry > 30*24*time.Hour {
		errs = append(errs, fmt.Errorf("JWT_EXPIRY must be at most 720h, got %v", c.JWTExpiry))
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 {
		errs = append(errs, errors.New("DB pool sizes must not be negative"))
	}
	if c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}

	return errors.Join(errs...)
}

// LoadAndValidate is Load followed by Validate.
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
