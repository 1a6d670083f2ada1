// Package config loads executor configuration from the environment and
// from YAML execution profiles.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the recognized executor options.
type Config struct {
	MaxRetryAttempts       int
	BackoffBaseMs          int64
	BackoffCapMs           int64
	CriticalAlertTimeoutMs int64
	DefaultRateLimitWindow time.Duration

	RateLimit    int
	RedisAddr    string
	ExportBucket string
	ExportRegion string
	LogLevel     string
	OTLPEndpoint string
}

// Load reads configuration from environment variables, falling back to
// code defaults.
func Load() *Config {
	return &Config{
		MaxRetryAttempts:       envInt("CASTELLAN_MAX_RETRY_ATTEMPTS", 3),
		BackoffBaseMs:          envInt64("CASTELLAN_BACKOFF_BASE_MS", 100),
		BackoffCapMs:           envInt64("CASTELLAN_BACKOFF_CAP_MS", 5000),
		CriticalAlertTimeoutMs: envInt64("CASTELLAN_ALERT_TIMEOUT_MS", 2000),
		DefaultRateLimitWindow: envDuration("CASTELLAN_RATE_LIMIT_WINDOW", time.Minute),
		RateLimit:              envInt("CASTELLAN_RATE_LIMIT", 60),
		RedisAddr:              os.Getenv("CASTELLAN_REDIS_ADDR"),
		ExportBucket:           os.Getenv("CASTELLAN_EXPORT_BUCKET"),
		ExportRegion:           envString("CASTELLAN_EXPORT_REGION", "us-east-1"),
		LogLevel:               envString("CASTELLAN_LOG_LEVEL", "INFO"),
		OTLPEndpoint:           os.Getenv("CASTELLAN_OTLP_ENDPOINT"),
	}
}

// SlogLevel maps the configured log level name to a slog level.
// Unrecognized names fall back to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
