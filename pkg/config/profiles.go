package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExecutionProfile is a named bundle of retry and rate-limit settings,
// so different operation families can run under different guard
// parameters without code changes.
type ExecutionProfile struct {
	Name      string          `yaml:"name" json:"name"`
	Retry     RetrySettings   `yaml:"retry" json:"retry"`
	RateLimit LimitSettings   `yaml:"rate_limit" json:"rate_limit"`
}

// RetrySettings mirror the retry.Policy fields.
type RetrySettings struct {
	MaxAttempts int   `yaml:"max_attempts" json:"max_attempts"`
	BaseMs      int64 `yaml:"base_ms" json:"base_ms"`
	CapMs       int64 `yaml:"cap_ms" json:"cap_ms"`
	MaxJitterMs int64 `yaml:"max_jitter_ms" json:"max_jitter_ms"`
}

// LimitSettings bound operations per actor per window.
type LimitSettings struct {
	Limit  int           `yaml:"limit" json:"limit"`
	Window time.Duration `yaml:"window" json:"window"`
}

// LoadProfiles reads every *.yaml profile in dir, keyed by profile name.
func LoadProfiles(dir string) (map[string]*ExecutionProfile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: read profiles dir: %w", err)
	}

	profiles := make(map[string]*ExecutionProfile)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p, err := LoadProfile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// LoadProfile reads a single profile file.
func LoadProfile(path string) (*ExecutionProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}

	var p ExecutionProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("config: parse profile %s: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("config: profile %s has no name", path)
	}
	return &p, nil
}
