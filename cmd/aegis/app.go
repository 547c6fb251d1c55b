package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sentinel-hq/aegis/pkg/audit"
	auditstorage "sentinel-hq/aegis/pkg/audit/storage"
	"sentinel-hq/aegis/pkg/cli"
	"sentinel-hq/aegis/pkg/config"
	"sentinel-hq/aegis/pkg/policy/cache"
	"sentinel-hq/aegis/pkg/policy/engine"
	"sentinel-hq/aegis/pkg/policy/level"
	"sentinel-hq/aegis/pkg/policy/risk"
	"sentinel-hq/aegis/pkg/policy/rule"
	"sentinel-hq/aegis/pkg/telemetry/logging"
	"sentinel-hq/aegis/pkg/telemetry/metrics"
)

// app is the assembled engine stack shared by the run, eval and admin
// commands.
type app struct {
	cfg *config.Config

	store       *rule.Store
	ruleDB      *rule.SQLiteStore
	resultCache *cache.ResultCache
	scorer      *risk.Scorer
	levels      *level.Controller
	auditLog    *audit.Log
	collector   *metrics.Collector
	evaluator   *engine.Evaluator
}

// loadConfig loads the configuration file with environment overrides. When
// the default config path does not exist, built-in defaults are used so the
// CLI works out of the box.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) && !rootCmd.PersistentFlags().Changed("config") {
		cfg := config.DefaultConfig()
		config.ApplyEnvOverrides(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

// buildApp assembles the full stack from configuration.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if _, err := logging.Setup(cfg.Logging, os.Stderr); err != nil {
		return nil, cli.NewConfigError("logging", err.Error())
	}

	a := &app{cfg: cfg}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	storage, err := openAuditStorage(a.cfg)
	if err != nil {
		return err
	}

	a.auditLog, err = audit.Open(storage, &audit.Config{
		QueueSize:        a.cfg.Audit.QueueSize,
		MaxSegmentEvents: int64(a.cfg.Audit.MaxSegmentEvents),
		RetainSegments:   a.cfg.Audit.RetainSegments,
		RetryAttempts:    a.cfg.Audit.RetryAttempts,
		RetryBackoff:     a.cfg.Audit.RetryBackoff,
	})
	if err != nil {
		storage.Close()
		return fmt.Errorf("opening audit log: %w", err)
	}

	initial, err := level.Parse(a.cfg.Level.Initial)
	if err != nil {
		return cli.NewConfigError("level.initial", err.Error())
	}
	// Level transitions are durable through the audit chain; resume from
	// the most recent recorded one.
	restored, err := level.Restore(ctx, storage, initial)
	if err != nil {
		slog.Warn("could not restore security level", "error", err)
		restored = initial
	}
	a.levels = level.NewController(restored, a.auditLog)

	a.store = rule.NewStore()
	if a.cfg.Rules.DBPath != "" {
		if err := ensureDir(a.cfg.Rules.DBPath); err != nil {
			return err
		}
		a.ruleDB, err = rule.OpenSQLiteStore(a.cfg.Rules.DBPath)
		if err != nil {
			return fmt.Errorf("opening rule database: %w", err)
		}
		if err := a.ruleDB.Restore(ctx, a.store); err != nil {
			return fmt.Errorf("restoring rules: %w", err)
		}
	}
	if a.cfg.Rules.FilePath != "" {
		if err := rule.ApplyFile(a.store, a.cfg.Rules.FilePath); err != nil {
			return fmt.Errorf("loading rule file: %w", err)
		}
	}

	if a.cfg.Cache.Enabled {
		a.resultCache = cache.New(&cache.Config{
			TTL:        a.cfg.Cache.TTL,
			MaxEntries: a.cfg.Cache.MaxEntries,
			Shards:     a.cfg.Cache.Shards,
		})
	}

	a.scorer, err = risk.NewScorer(
		&risk.Config{
			Aggregation: risk.Aggregation(a.cfg.Risk.Aggregation),
			Weights:     a.cfg.Risk.Weights,
		},
		risk.DeviceTrust{},
		risk.LocationTrust{AllowedCountries: a.cfg.Risk.AllowedCountries},
		risk.NewZScoreSignal("request.frequency", 0),
	)
	if err != nil {
		return fmt.Errorf("building risk scorer: %w", err)
	}

	a.collector = metrics.NewCollector(&a.cfg.Metrics, nil)

	opts := []engine.Option{engine.WithMetrics(a.collector)}
	if a.resultCache != nil {
		opts = append(opts, engine.WithCache(a.resultCache))
	}
	a.evaluator, err = engine.New(
		&engine.Config{
			FailSafeMode:      engine.FailSafeMode(a.cfg.Engine.FailSafeMode),
			RuleTimeout:       a.cfg.Engine.RuleTimeout,
			RiskDenyThreshold: a.cfg.Engine.RiskDenyThreshold,
			FailClosedAudit:   a.cfg.Engine.FailClosedAudit,
			IncludeDetails:    a.cfg.Engine.IncludeDetails,
		},
		a.store, a.scorer, a.levels, a.auditLog, opts...,
	)
	if err != nil {
		return fmt.Errorf("building evaluator: %w", err)
	}

	return nil
}

// Close shuts the stack down in reverse dependency order. The audit log
// drains its queue and closes its storage.
func (a *app) Close() {
	if a.auditLog != nil {
		if err := a.auditLog.Close(); err != nil {
			slog.Warn("audit log close failed", "error", err)
		}
	}
	if a.ruleDB != nil {
		if err := a.ruleDB.Close(); err != nil {
			slog.Warn("rule database close failed", "error", err)
		}
	}
}

// publishMetrics pushes cache and audit snapshots into the collector.
func (a *app) publishMetrics() {
	if a.resultCache != nil {
		a.collector.Cache().Publish(a.resultCache.Stats())
	}
	a.collector.Audit().Publish(a.auditLog.Stats())
}

func openAuditStorage(cfg *config.Config) (audit.Storage, error) {
	switch cfg.Audit.Backend {
	case "memory":
		return auditstorage.NewMemoryStorage(), nil
	case "sqlite":
		if err := ensureDir(cfg.Audit.SQLitePath); err != nil {
			return nil, err
		}
		sc := auditstorage.DefaultSQLiteConfig()
		sc.Path = cfg.Audit.SQLitePath
		return auditstorage.NewSQLiteStorage(sc)
	}
	return nil, cli.NewConfigError("audit.backend", fmt.Sprintf("unknown backend %q", cfg.Audit.Backend))
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}
	return nil
}
