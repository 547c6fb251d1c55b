package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"sentinel-hq/aegis/pkg/policy/rule"
)

// Config contains configuration for the result cache.
type Config struct {
	// TTL is the time-to-live for entries. Zero disables expiry.
	TTL time.Duration

	// MaxEntries bounds the total entry count; the least recently used
	// entry of a full shard is evicted. Zero means unlimited.
	MaxEntries int

	// Shards is the number of lock shards. Defaults to 16.
	Shards int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		TTL:        30 * time.Second,
		MaxEntries: 10000,
		Shards:     16,
	}
}

// Entry is a cached evaluation result with its bookkeeping.
type Entry struct {
	Result     rule.EvaluationResult
	ExpiresAt  time.Time
	HitCount   int64
	lastAccess time.Time
}

// ResultCache is a concurrency-safe, sharded result cache with TTL expiry,
// LRU capacity eviction, and lazy per-rule-version invalidation. Misses
// recompute without holding any lock other than the entry's own shard.
type ResultCache struct {
	shards    []*shard
	ttl       time.Duration
	perShard  int
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	getNanos  atomic.Int64
	getCount  atomic.Int64
	putNanos  atomic.Int64
	putCount  atomic.Int64
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates a result cache.
func New(cfg *Config) *ResultCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	n := cfg.Shards
	if n <= 0 {
		n = 16
	}
	perShard := 0
	if cfg.MaxEntries > 0 {
		perShard = cfg.MaxEntries / n
		if perShard == 0 {
			perShard = 1
		}
	}

	c := &ResultCache{
		shards:   make([]*shard, n),
		ttl:      cfg.TTL,
		perShard: perShard,
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	return c
}

// Get returns the cached result for the fingerprint if present, unexpired,
// and produced by the given rule version. A version mismatch drops the entry
// and reports a miss (lazy invalidation).
func (c *ResultCache) Get(fingerprint string, ruleVersion int) (rule.EvaluationResult, bool) {
	start := time.Now()
	defer func() {
		c.getNanos.Add(time.Since(start).Nanoseconds())
		c.getCount.Add(1)
	}()

	sh := c.shardFor(fingerprint)

	sh.mu.RLock()
	e, ok := sh.entries[fingerprint]
	sh.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return rule.EvaluationResult{}, false
	}

	now := time.Now()
	stale := e.Result.RuleVersion != ruleVersion
	expired := c.ttl > 0 && now.After(e.ExpiresAt)
	if stale || expired {
		sh.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// refreshed the entry.
		if cur, ok := sh.entries[fingerprint]; ok && cur == e {
			delete(sh.entries, fingerprint)
		}
		sh.mu.Unlock()
		c.misses.Add(1)
		return rule.EvaluationResult{}, false
	}

	sh.mu.Lock()
	if cur, ok := sh.entries[fingerprint]; ok {
		cur.HitCount++
		cur.lastAccess = now
		if c.ttl > 0 {
			cur.ExpiresAt = now.Add(c.ttl)
		}
	}
	sh.mu.Unlock()

	c.hits.Add(1)
	res := e.Result
	res.Cached = true
	return res, true
}

// Put stores an evaluation result under the fingerprint, evicting the least
// recently used entry of a full shard.
func (c *ResultCache) Put(fingerprint string, result rule.EvaluationResult) {
	start := time.Now()
	defer func() {
		c.putNanos.Add(time.Since(start).Nanoseconds())
		c.putCount.Add(1)
	}()

	now := time.Now()
	e := &Entry{
		Result:     result,
		lastAccess: now,
	}
	if c.ttl > 0 {
		e.ExpiresAt = now.Add(c.ttl)
	}

	sh := c.shardFor(fingerprint)
	sh.mu.Lock()
	if c.perShard > 0 && len(sh.entries) >= c.perShard {
		if _, exists := sh.entries[fingerprint]; !exists {
			sh.evictLRULocked()
			c.evictions.Add(1)
		}
	}
	sh.entries[fingerprint] = e
	sh.mu.Unlock()
}

// HitCount returns the recorded hit count for a fingerprint.
func (c *ResultCache) HitCount(fingerprint string) int64 {
	sh := c.shardFor(fingerprint)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if e, ok := sh.entries[fingerprint]; ok {
		return e.HitCount
	}
	return 0
}

// Len returns the current number of entries.
func (c *ResultCache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Clear removes all entries.
func (c *ResultCache) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]*Entry)
		sh.mu.Unlock()
	}
}

// Stats is a point-in-time snapshot of cache accounting.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	HitRate       float64
	Entries       int
	AvgGetLatency time.Duration
	AvgPutLatency time.Duration
}

// Stats returns the cache's accounting snapshot. It is consumed by the
// observability layer; the cache itself never acts on it.
func (c *ResultCache) Stats() Stats {
	s := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	if n := c.getCount.Load(); n > 0 {
		s.AvgGetLatency = time.Duration(c.getNanos.Load() / n)
	}
	if n := c.putCount.Load(); n > 0 {
		s.AvgPutLatency = time.Duration(c.putNanos.Load() / n)
	}
	return s
}

func (c *ResultCache) shardFor(fingerprint string) *shard {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// evictLRULocked removes the least recently accessed entry. Must be called
// with the shard write lock held.
func (sh *shard) evictLRULocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range sh.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(sh.entries, oldestKey)
	}
}
