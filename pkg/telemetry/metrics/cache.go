package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/aegis/pkg/config"
	"sentinel-hq/aegis/pkg/policy/cache"
)

// CacheMetrics tracks result cache performance.
//
// Metrics:
//   - aegis_policy_cache_hits_total: Total cache hits
//   - aegis_policy_cache_misses_total: Total cache misses
//   - aegis_policy_cache_evictions_total: Total cache evictions
//   - aegis_policy_cache_entries: Current number of cached results
//   - aegis_policy_cache_hit_rate: Hit rate since process start
type CacheMetrics struct {
	hitsTotal      prometheus.Counter
	missesTotal    prometheus.Counter
	evictionsTotal prometheus.Counter
	entries        prometheus.Gauge
	hitRate        prometheus.Gauge

	// last published stats, for counter deltas
	last cache.Stats
}

// NewCacheMetrics creates and registers cache metrics with the provided
// registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of result cache hits",
		}),

		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of result cache misses",
		}),

		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_evictions_total",
			Help:      "Total number of result cache evictions",
		}),

		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Current number of cached rule results",
		}),

		hitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hit_rate",
			Help:      "Result cache hit rate since process start",
		}),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.evictionsTotal,
		cm.entries,
		cm.hitRate,
	)

	return cm
}

// Publish updates the metric family from a cache stats snapshot. Callers
// publish periodically or per scrape; only one goroutine may publish.
func (cm *CacheMetrics) Publish(s cache.Stats) {
	if d := s.Hits - cm.last.Hits; d > 0 {
		cm.hitsTotal.Add(float64(d))
	}
	if d := s.Misses - cm.last.Misses; d > 0 {
		cm.missesTotal.Add(float64(d))
	}
	if d := s.Evictions - cm.last.Evictions; d > 0 {
		cm.evictionsTotal.Add(float64(d))
	}
	cm.entries.Set(float64(s.Entries))
	cm.hitRate.Set(s.HitRate)
	cm.last = s
}
