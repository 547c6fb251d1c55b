// Package ratelimit provides a sliding-window request counter used by
// rate-limit rule conditions (max_requests within time_window).
//
// The sliding window tracks counts over a rolling period using a circular
// buffer of fixed-granularity buckets, avoiding the reset spike of fixed
// windows while keeping memory bounded.
package ratelimit
