package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path,
// applies defaults, and validates the result. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention AEGIS_SECTION_FIELD (e.g. AEGIS_ENGINE_RULE_TIMEOUT) and
// always take precedence over file-based values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides using the format
// AEGIS_SECTION_FIELD.
func ApplyEnvOverrides(cfg *Config) {
	// Engine overrides
	if val := os.Getenv("AEGIS_ENGINE_FAIL_SAFE_MODE"); val != "" {
		cfg.Engine.FailSafeMode = val
	}
	if val := os.Getenv("AEGIS_ENGINE_RULE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.RuleTimeout = d
		}
	}
	if val := os.Getenv("AEGIS_ENGINE_RISK_DENY_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Engine.RiskDenyThreshold = f
		}
	}
	if val := os.Getenv("AEGIS_ENGINE_FAIL_CLOSED_AUDIT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.FailClosedAudit = b
		}
	}
	if val := os.Getenv("AEGIS_ENGINE_INCLUDE_DETAILS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.IncludeDetails = b
		}
	}

	// Rules overrides
	if val := os.Getenv("AEGIS_RULES_FILE_PATH"); val != "" {
		cfg.Rules.FilePath = val
	}
	if val := os.Getenv("AEGIS_RULES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Watch = b
		}
	}
	if val := os.Getenv("AEGIS_RULES_DB_PATH"); val != "" {
		cfg.Rules.DBPath = val
	}

	// Cache overrides
	if val := os.Getenv("AEGIS_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if val := os.Getenv("AEGIS_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if val := os.Getenv("AEGIS_CACHE_MAX_ENTRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxEntries = i
		}
	}

	// Risk overrides
	if val := os.Getenv("AEGIS_RISK_AGGREGATION"); val != "" {
		cfg.Risk.Aggregation = val
	}

	// Audit overrides
	if val := os.Getenv("AEGIS_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("AEGIS_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLitePath = val
	}
	if val := os.Getenv("AEGIS_AUDIT_QUEUE_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.QueueSize = i
		}
	}
	if val := os.Getenv("AEGIS_AUDIT_MAX_SEGMENT_EVENTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.MaxSegmentEvents = i
		}
	}
	if val := os.Getenv("AEGIS_AUDIT_RETAIN_SEGMENTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.RetainSegments = i
		}
	}
	if val := os.Getenv("AEGIS_AUDIT_MAINTENANCE_SCHEDULE"); val != "" {
		cfg.Audit.MaintenanceSchedule = val
	}

	// Level overrides
	if val := os.Getenv("AEGIS_LEVEL_INITIAL"); val != "" {
		cfg.Level.Initial = val
	}

	// Metrics overrides
	if val := os.Getenv("AEGIS_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("AEGIS_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Metrics.ListenAddress = val
	}

	// Logging overrides
	if val := os.Getenv("AEGIS_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("AEGIS_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
