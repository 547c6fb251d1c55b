package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/aegis/pkg/config"
)

// Collector is the main orchestrator for all Prometheus metrics. It manages
// metric registration and provides a unified interface for recording
// observations across the engine, cache and audit subsystems.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	cache      *CacheMetrics
	audit      *AuditMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "aegis"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "policy"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.evaluation = NewEvaluationMetrics(cfg, registry)
	c.cache = NewCacheMetrics(cfg, registry)
	c.audit = NewAuditMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveEvaluation records one completed evaluation. Satisfies the
// engine's Metrics interface.
func (c *Collector) ObserveEvaluation(allowed bool, riskScore float64, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.evaluation.RecordDecision(allowed, riskScore, duration)
}

// ObserveRule records one per-rule outcome. Satisfies the engine's Metrics
// interface.
func (c *Collector) ObserveRule(ruleID string, matched, cached bool) {
	if !c.config.Enabled {
		return
	}
	c.evaluation.RecordRule(ruleID, matched, cached)
}

// Evaluation returns the evaluation metric family.
func (c *Collector) Evaluation() *EvaluationMetrics {
	return c.evaluation
}

// Cache returns the cache metric family.
func (c *Collector) Cache() *CacheMetrics {
	return c.cache
}

// Audit returns the audit metric family.
func (c *Collector) Audit() *AuditMetrics {
	return c.audit
}
