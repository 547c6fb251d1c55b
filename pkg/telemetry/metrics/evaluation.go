package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/aegis/pkg/config"
)

// EvaluationMetrics tracks metrics related to policy evaluation.
//
// Metrics:
//   - aegis_policy_evaluations_total: Total evaluations by outcome
//   - aegis_policy_evaluation_duration_seconds: Evaluation duration
//   - aegis_policy_risk_score: Distribution of aggregate risk scores
//   - aegis_policy_rule_hits_total: Number of times a rule matched
//   - aegis_policy_rule_misses_total: Number of times a rule did not match
//   - aegis_policy_rule_cached_total: Per-rule results served from cache
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	riskScore          prometheus.Histogram
	ruleHitsTotal      *prometheus.CounterVec
	ruleMissesTotal    *prometheus.CounterVec
	ruleCachedTotal    *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"outcome"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of policy evaluation in seconds",
				// Evaluations should be fast (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		riskScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "risk_score",
				Help:      "Distribution of aggregate risk scores",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		ruleHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_hits_total",
				Help:      "Total number of rule matches",
			},
			[]string{"rule_id"},
		),

		ruleMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_misses_total",
				Help:      "Total number of rule misses",
			},
			[]string{"rule_id"},
		),

		ruleCachedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_cached_total",
				Help:      "Total number of per-rule results served from the result cache",
			},
			[]string{"rule_id"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.riskScore,
		em.ruleHitsTotal,
		em.ruleMissesTotal,
		em.ruleCachedTotal,
	)

	return em
}

// RecordDecision records one completed evaluation.
func (em *EvaluationMetrics) RecordDecision(allowed bool, riskScore float64, duration time.Duration) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	em.evaluationsTotal.WithLabelValues(outcome).Inc()
	em.evaluationDuration.Observe(duration.Seconds())
	em.riskScore.Observe(riskScore)
}

// RecordRule records one per-rule outcome.
func (em *EvaluationMetrics) RecordRule(ruleID string, matched, cached bool) {
	if matched {
		em.ruleHitsTotal.WithLabelValues(ruleID).Inc()
	} else {
		em.ruleMissesTotal.WithLabelValues(ruleID).Inc()
	}
	if cached {
		em.ruleCachedTotal.WithLabelValues(ruleID).Inc()
	}
}
