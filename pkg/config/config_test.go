package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aegis.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// ===== Default Tests =====

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.FailSafeMode != "fail-closed" {
		t.Errorf("Expected fail-closed, got %q", cfg.Engine.FailSafeMode)
	}
	if cfg.Engine.RuleTimeout != 50*time.Millisecond {
		t.Errorf("Expected 50ms rule timeout, got %v", cfg.Engine.RuleTimeout)
	}
	if !cfg.Engine.IncludeDetails {
		t.Error("Expected details included by default")
	}
	if !cfg.Cache.Enabled {
		t.Error("Expected cache enabled by default")
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected 30s cache TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Risk.Aggregation != "mean" {
		t.Errorf("Expected mean aggregation, got %q", cfg.Risk.Aggregation)
	}
	if cfg.Audit.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend, got %q", cfg.Audit.Backend)
	}
	if cfg.Level.Initial != "STANDARD" {
		t.Errorf("Expected STANDARD initial level, got %q", cfg.Level.Initial)
	}
	if cfg.Metrics.Namespace != "aegis" || cfg.Metrics.Subsystem != "policy" {
		t.Errorf("Unexpected metric naming: %s/%s", cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging defaults: %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

// ===== Load Tests =====

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
engine:
  fail_safe_mode: fail-open
  rule_timeout: 100ms
  risk_deny_threshold: 0.8
rules:
  file_path: rules.yaml
audit:
  backend: memory
level:
  initial: HIGH
logging:
  level: debug
  format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.FailSafeMode != "fail-open" {
		t.Errorf("Expected fail-open, got %q", cfg.Engine.FailSafeMode)
	}
	if cfg.Engine.RuleTimeout != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", cfg.Engine.RuleTimeout)
	}
	if cfg.Engine.RiskDenyThreshold != 0.8 {
		t.Errorf("Expected 0.8, got %.2f", cfg.Engine.RiskDenyThreshold)
	}
	if cfg.Audit.Backend != "memory" {
		t.Errorf("Expected memory backend, got %q", cfg.Audit.Backend)
	}
	if cfg.Level.Initial != "HIGH" {
		t.Errorf("Expected HIGH, got %q", cfg.Level.Initial)
	}

	// Unspecified sections keep their defaults.
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected default cache TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Audit.QueueSize != 1024 {
		t.Errorf("Expected default queue size, got %d", cfg.Audit.QueueSize)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := writeConfig(t, `
engine:
  fail_safe_mode: sometimes
`)
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

// ===== Validation Tests =====

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"bad fail safe mode", func(c *Config) { c.Engine.FailSafeMode = "maybe" }},
		{"negative rule timeout", func(c *Config) { c.Engine.RuleTimeout = -time.Second }},
		{"risk threshold above one", func(c *Config) { c.Engine.RiskDenyThreshold = 1.2 }},
		{"watch without file", func(c *Config) { c.Rules.Watch = true }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"bad aggregation", func(c *Config) { c.Risk.Aggregation = "median" }},
		{"negative weight", func(c *Config) { c.Risk.Weights = map[string]float64{"device": -1} }},
		{"bad audit backend", func(c *Config) { c.Audit.Backend = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Audit.SQLitePath = ""; c.Audit.Backend = "sqlite" }},
		{"bad level", func(c *Config) { c.Level.Initial = "EXTREME" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(cfg)
			if err := Validate(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// ===== Environment Override Tests =====

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AEGIS_ENGINE_FAIL_SAFE_MODE", "fail-open")
	t.Setenv("AEGIS_ENGINE_RULE_TIMEOUT", "250ms")
	t.Setenv("AEGIS_ENGINE_RISK_DENY_THRESHOLD", "0.6")
	t.Setenv("AEGIS_CACHE_ENABLED", "false")
	t.Setenv("AEGIS_AUDIT_BACKEND", "memory")
	t.Setenv("AEGIS_LEVEL_INITIAL", "MAXIMUM")
	t.Setenv("AEGIS_LOGGING_LEVEL", "warn")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Engine.FailSafeMode != "fail-open" {
		t.Errorf("Expected fail-open, got %q", cfg.Engine.FailSafeMode)
	}
	if cfg.Engine.RuleTimeout != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.Engine.RuleTimeout)
	}
	if cfg.Engine.RiskDenyThreshold != 0.6 {
		t.Errorf("Expected 0.6, got %.2f", cfg.Engine.RiskDenyThreshold)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected cache disabled by override")
	}
	if cfg.Audit.Backend != "memory" {
		t.Errorf("Expected memory backend, got %q", cfg.Audit.Backend)
	}
	if cfg.Level.Initial != "MAXIMUM" {
		t.Errorf("Expected MAXIMUM, got %q", cfg.Level.Initial)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected warn, got %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("AEGIS_ENGINE_RULE_TIMEOUT", "soon")
	t.Setenv("AEGIS_CACHE_MAX_ENTRIES", "lots")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Engine.RuleTimeout != 50*time.Millisecond {
		t.Errorf("Expected malformed duration ignored, got %v", cfg.Engine.RuleTimeout)
	}
	if cfg.Cache.MaxEntries != 10000 {
		t.Errorf("Expected malformed int ignored, got %d", cfg.Cache.MaxEntries)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("AEGIS_LEVEL_INITIAL", "HIGH")
	path := writeConfig(t, `
level:
  initial: MONITOR
`)

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Level.Initial != "HIGH" {
		t.Errorf("Expected env override to win over the file, got %q", cfg.Level.Initial)
	}
}

func TestLoadConfigWithEnvOverridesValidatesResult(t *testing.T) {
	t.Setenv("AEGIS_LEVEL_INITIAL", "EXTREME")
	path := writeConfig(t, "")

	if _, err := LoadConfigWithEnvOverrides(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig after overrides, got %v", err)
	}
}
