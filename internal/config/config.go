// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the application configuration
type Config struct {
	HTTPAddr   string // API listener
	DiagAddr   string // metrics listener
	RedisAddr  string
	BadgerPath string // empty runs without a content store

	LogLevel  string
	LogFormat string // "console" or "json"

	LikeRate  float64 // like requests per second per client IP
	LikeBurst int

	GCInterval     time.Duration
	GCDiscardRatio float64

	AuthorCacheSize int
	AuthorCacheTTL  time.Duration
}

// LoadDotEnv reads a .env file into the environment if one exists.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":5000"),
		DiagAddr:   getEnv("DIAG_ADDR", ":9999"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		BadgerPath: getEnv("BADGER_PATH", "./badger-data"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.LikeRate, err = getEnvFloat("LIKE_RATE", 5); err != nil {
		return nil, err
	}
	if cfg.LikeBurst, err = getEnvInt("LIKE_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.GCInterval, err = getEnvDuration("GC_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GCDiscardRatio, err = getEnvFloat("GC_DISCARD_RATIO", 0.7); err != nil {
		return nil, err
	}
	if cfg.AuthorCacheSize, err = getEnvInt("AUTHOR_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.AuthorCacheTTL, err = getEnvDuration("AUTHOR_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty")
	}
	if c.LikeRate <= 0 || c.LikeBurst < 1 {
		return fmt.Errorf("LIKE_RATE and LIKE_BURST must be positive")
	}
	if c.GCInterval <= 0 {
		return fmt.Errorf("GC_INTERVAL must be positive")
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("GC_DISCARD_RATIO must be between 0 and 1")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds a zap logger: development output for console, production
// encoding for json.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if c.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return d, nil
}
