package config

import "time"

// ApplyDefaults fills unset fields with their default values. Boolean
// fields that default to true are handled in DefaultConfig; a zero-value
// Config passed through ApplyDefaults keeps explicit false values.
func ApplyDefaults(cfg *Config) {
	if cfg.Engine.FailSafeMode == "" {
		cfg.Engine.FailSafeMode = "fail-closed"
	}
	if cfg.Engine.RuleTimeout == 0 {
		cfg.Engine.RuleTimeout = 50 * time.Millisecond
	}

	if cfg.Rules.WatchDebounce == 0 {
		cfg.Rules.WatchDebounce = 500 * time.Millisecond
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 30 * time.Second
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
	if cfg.Cache.Shards == 0 {
		cfg.Cache.Shards = 16
	}

	if cfg.Risk.Aggregation == "" {
		cfg.Risk.Aggregation = "mean"
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = "data/audit.db"
	}
	if cfg.Audit.QueueSize == 0 {
		cfg.Audit.QueueSize = 1024
	}
	if cfg.Audit.MaxSegmentEvents == 0 {
		cfg.Audit.MaxSegmentEvents = 10000
	}
	if cfg.Audit.RetainSegments == 0 {
		cfg.Audit.RetainSegments = 5
	}
	if cfg.Audit.RetryAttempts == 0 {
		cfg.Audit.RetryAttempts = 3
	}
	if cfg.Audit.RetryBackoff == 0 {
		cfg.Audit.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Audit.MaintenanceSchedule == "" {
		cfg.Audit.MaintenanceSchedule = "@every 1m"
	}

	if cfg.Level.Initial == "" {
		cfg.Level.Initial = "STANDARD"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "aegis"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "policy"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// DefaultConfig returns a fully populated default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Engine: EngineConfig{
			IncludeDetails: true,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
