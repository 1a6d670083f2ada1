package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.MaxRetryAttempts != 3 {
		t.Errorf("MaxRetryAttempts = %d, want 3", cfg.MaxRetryAttempts)
	}
	if cfg.BackoffBaseMs != 100 || cfg.BackoffCapMs != 5000 {
		t.Errorf("backoff = %d/%d, want 100/5000", cfg.BackoffBaseMs, cfg.BackoffCapMs)
	}
	if cfg.CriticalAlertTimeoutMs != 2000 {
		t.Errorf("CriticalAlertTimeoutMs = %d, want 2000", cfg.CriticalAlertTimeoutMs)
	}
	if cfg.DefaultRateLimitWindow != time.Minute {
		t.Errorf("DefaultRateLimitWindow = %s, want 1m", cfg.DefaultRateLimitWindow)
	}
	if cfg.RateLimit != 60 {
		t.Errorf("RateLimit = %d, want 60", cfg.RateLimit)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CASTELLAN_MAX_RETRY_ATTEMPTS", "5")
	t.Setenv("CASTELLAN_BACKOFF_BASE_MS", "250")
	t.Setenv("CASTELLAN_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CASTELLAN_REDIS_ADDR", "localhost:6379")
	t.Setenv("CASTELLAN_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.MaxRetryAttempts != 5 {
		t.Errorf("MaxRetryAttempts = %d, want 5", cfg.MaxRetryAttempts)
	}
	if cfg.BackoffBaseMs != 250 {
		t.Errorf("BackoffBaseMs = %d, want 250", cfg.BackoffBaseMs)
	}
	if cfg.DefaultRateLimitWindow != 30*time.Second {
		t.Errorf("DefaultRateLimitWindow = %s, want 30s", cfg.DefaultRateLimitWindow)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("CASTELLAN_MAX_RETRY_ATTEMPTS", "not-a-number")
	t.Setenv("CASTELLAN_RATE_LIMIT_WINDOW", "soon")

	cfg := Load()
	if cfg.MaxRetryAttempts != 3 {
		t.Errorf("MaxRetryAttempts = %d, want default 3", cfg.MaxRetryAttempts)
	}
	if cfg.DefaultRateLimitWindow != time.Minute {
		t.Errorf("DefaultRateLimitWindow = %s, want default 1m", cfg.DefaultRateLimitWindow)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for name, want := range cases {
		if got := (Config{LogLevel: name}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bulk.yaml"), `
name: bulk
retry:
  max_attempts: 5
  base_ms: 200
  cap_ms: 10000
  max_jitter_ms: 100
rate_limit:
  limit: 10
  window: 1m
`)
	writeFile(t, filepath.Join(dir, "interactive.yaml"), `
name: interactive
retry:
  max_attempts: 2
  base_ms: 50
  cap_ms: 500
rate_limit:
  limit: 120
  window: 1m
`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a profile")

	profiles, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}

	bulk := profiles["bulk"]
	if bulk == nil || bulk.Retry.MaxAttempts != 5 || bulk.Retry.BaseMs != 200 {
		t.Errorf("bulk = %+v", bulk)
	}
	if bulk.RateLimit.Limit != 10 || bulk.RateLimit.Window != time.Minute {
		t.Errorf("bulk rate limit = %+v", bulk.RateLimit)
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	dir := t.TempDir()

	nameless := filepath.Join(dir, "nameless.yaml")
	writeFile(t, nameless, "retry: {max_attempts: 1}")
	if _, err := LoadProfile(nameless); err == nil {
		t.Error("profile without name accepted")
	}

	malformed := filepath.Join(dir, "malformed.yaml")
	writeFile(t, malformed, "{{not yaml")
	if _, err := LoadProfile(malformed); err == nil {
		t.Error("malformed yaml accepted")
	}

	if _, err := LoadProfile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
