// Package cache memoizes per-rule evaluation results keyed by a context
// fingerprint.
//
// A fingerprint is a deterministic digest of (rule id, canonicalized subset
// of the context restricted to the rule's required keys): two contexts that
// differ only in fields a rule does not read fingerprint identically for
// that rule.
//
// The cache is an optimization only. Entries expire by TTL, are evicted LRU
// under capacity pressure, and are invalidated lazily when the owning rule's
// version changes (checked on next access, not eagerly swept). Any cache
// failure falls back to direct evaluation and is never surfaced to callers.
package cache
