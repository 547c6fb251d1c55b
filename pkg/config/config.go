package config

import "time"

// Config is the root configuration for the Aegis policy engine.
type Config struct {
	// Engine configures the policy evaluator.
	Engine EngineConfig `yaml:"engine"`

	// Rules configures rule loading and persistence.
	Rules RulesConfig `yaml:"rules"`

	// Cache configures the evaluation result cache.
	Cache CacheConfig `yaml:"cache"`

	// Risk configures the contextual risk scorer.
	Risk RiskConfig `yaml:"risk"`

	// Audit configures the hash-chained audit log.
	Audit AuditConfig `yaml:"audit"`

	// Level configures the security level controller.
	Level LevelConfig `yaml:"level"`

	// Metrics configures Prometheus instrumentation.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig contains configuration for the policy evaluator.
type EngineConfig struct {
	// FailSafeMode resolves indeterminate evaluations.
	// Options: "fail-open", "fail-closed"
	// Default: "fail-closed"
	FailSafeMode string `yaml:"fail_safe_mode"`

	// RuleTimeout is the maximum time allowed to evaluate a single rule.
	// Default: 50ms
	RuleTimeout time.Duration `yaml:"rule_timeout"`

	// RiskDenyThreshold denies requests whose aggregate risk score exceeds
	// it. Zero disables the evaluator-level risk check.
	// Default: 0
	RiskDenyThreshold float64 `yaml:"risk_deny_threshold"`

	// FailClosedAudit denies requests when the audit sink cannot accept
	// the decision event.
	// Default: false
	FailClosedAudit bool `yaml:"fail_closed_audit"`

	// IncludeDetails carries per-rule results in returned decisions.
	// Default: true
	IncludeDetails bool `yaml:"include_details"`
}

// RulesConfig contains configuration for rule loading and persistence.
type RulesConfig struct {
	// FilePath is the YAML rule file loaded at startup. Empty skips file
	// loading.
	FilePath string `yaml:"file_path"`

	// Watch reloads the rule file on change.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces rapid file change events.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// DBPath is the SQLite rule table path. Empty disables persistence.
	DBPath string `yaml:"db_path"`
}

// CacheConfig contains configuration for the result cache.
type CacheConfig struct {
	// Enabled turns the result cache on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is the entry lifetime.
	// Default: 30s
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the cache size; least recently used entries are
	// evicted past it.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`

	// Shards is the lock shard count.
	// Default: 16
	Shards int `yaml:"shards"`
}

// RiskConfig contains configuration for the risk scorer.
type RiskConfig struct {
	// Aggregation combines sub-scores.
	// Options: "mean", "weighted", "max"
	// Default: "mean"
	Aggregation string `yaml:"aggregation"`

	// Weights holds per-signal weights for the weighted aggregation.
	Weights map[string]float64 `yaml:"weights"`

	// AllowedCountries lists country codes the location signal treats as
	// trusted.
	AllowedCountries []string `yaml:"allowed_countries"`
}

// AuditConfig contains configuration for the audit log.
type AuditConfig struct {
	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// QueueSize bounds the writer queue.
	// Default: 1024
	QueueSize int `yaml:"queue_size"`

	// MaxSegmentEvents rotates the chain segment once exceeded.
	// Default: 10000
	MaxSegmentEvents int `yaml:"max_segment_events"`

	// RetainSegments is the number of rotated segments kept.
	// Default: 5
	RetainSegments int `yaml:"retain_segments"`

	// RetryAttempts is the number of storage write retries.
	// Default: 3
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoff is the initial retry backoff, doubled per attempt.
	// Default: 100ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaintenanceSchedule is a cron expression for periodic rotation
	// checks. Empty disables the scheduler.
	// Default: "@every 1m"
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// LevelConfig contains configuration for the security level controller.
type LevelConfig struct {
	// Initial is the security level at startup.
	// Options: "MONITOR", "STANDARD", "HIGH", "MAXIMUM"
	// Default: "STANDARD"
	Initial string `yaml:"initial"`
}

// MetricsConfig contains configuration for Prometheus instrumentation.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace.
	// Default: "aegis"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem.
	// Default: "policy"
	Subsystem string `yaml:"subsystem"`

	// ListenAddress serves the scrape endpoint. Empty disables the
	// listener.
	ListenAddress string `yaml:"listen_address"`

	// Path is the scrape endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}
