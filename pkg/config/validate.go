package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the base error for configuration validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration for invalid values. It is called
// automatically by the loaders after defaults and overrides are applied.
func Validate(cfg *Config) error {
	switch cfg.Engine.FailSafeMode {
	case "fail-open", "fail-closed":
	default:
		return fmt.Errorf("%w: engine.fail_safe_mode must be fail-open or fail-closed, got %q",
			ErrInvalidConfig, cfg.Engine.FailSafeMode)
	}
	if cfg.Engine.RuleTimeout <= 0 {
		return fmt.Errorf("%w: engine.rule_timeout must be positive", ErrInvalidConfig)
	}
	if cfg.Engine.RiskDenyThreshold < 0 || cfg.Engine.RiskDenyThreshold > 1 {
		return fmt.Errorf("%w: engine.risk_deny_threshold must be within [0,1]", ErrInvalidConfig)
	}

	if cfg.Rules.Watch && cfg.Rules.FilePath == "" {
		return fmt.Errorf("%w: rules.watch requires rules.file_path", ErrInvalidConfig)
	}
	if cfg.Rules.WatchDebounce <= 0 {
		return fmt.Errorf("%w: rules.watch_debounce must be positive", ErrInvalidConfig)
	}

	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("%w: cache.max_entries must be positive", ErrInvalidConfig)
	}
	if cfg.Cache.Shards <= 0 {
		return fmt.Errorf("%w: cache.shards must be positive", ErrInvalidConfig)
	}

	switch cfg.Risk.Aggregation {
	case "mean", "weighted", "max":
	default:
		return fmt.Errorf("%w: risk.aggregation must be mean, weighted or max, got %q",
			ErrInvalidConfig, cfg.Risk.Aggregation)
	}
	for name, w := range cfg.Risk.Weights {
		if w < 0 {
			return fmt.Errorf("%w: risk.weights[%s] must be non-negative", ErrInvalidConfig, name)
		}
	}

	switch cfg.Audit.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("%w: audit.backend must be memory or sqlite, got %q",
			ErrInvalidConfig, cfg.Audit.Backend)
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.SQLitePath == "" {
		return fmt.Errorf("%w: audit.sqlite_path is required for the sqlite backend", ErrInvalidConfig)
	}
	if cfg.Audit.QueueSize <= 0 {
		return fmt.Errorf("%w: audit.queue_size must be positive", ErrInvalidConfig)
	}
	if cfg.Audit.MaxSegmentEvents <= 0 {
		return fmt.Errorf("%w: audit.max_segment_events must be positive", ErrInvalidConfig)
	}
	if cfg.Audit.RetainSegments <= 0 {
		return fmt.Errorf("%w: audit.retain_segments must be positive", ErrInvalidConfig)
	}
	if cfg.Audit.RetryAttempts < 0 {
		return fmt.Errorf("%w: audit.retry_attempts must be non-negative", ErrInvalidConfig)
	}
	if cfg.Audit.RetryBackoff <= 0 {
		return fmt.Errorf("%w: audit.retry_backoff must be positive", ErrInvalidConfig)
	}

	switch cfg.Level.Initial {
	case "MONITOR", "STANDARD", "HIGH", "MAXIMUM":
	default:
		return fmt.Errorf("%w: level.initial must be MONITOR, STANDARD, HIGH or MAXIMUM, got %q",
			ErrInvalidConfig, cfg.Level.Initial)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be debug, info, warn or error, got %q",
			ErrInvalidConfig, cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: logging.format must be json or text, got %q",
			ErrInvalidConfig, cfg.Logging.Format)
	}

	return nil
}
