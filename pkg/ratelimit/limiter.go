package ratelimit

import (
	"sync"
	"time"
)

// CheckResult is the outcome of a rate-limit check.
type CheckResult struct {
	// Allowed indicates if the request is within the limit.
	Allowed bool

	// Limit is the configured maximum count per window.
	Limit int64

	// Current is the count within the window after recording this request.
	Current int64

	// RetryAfter suggests how long to wait before retrying when rejected.
	RetryAfter time.Duration
}

// Limiter tracks per-key sliding windows, e.g. one window per client IP.
// Windows are created lazily on first use of a key.
type Limiter struct {
	limit  int64
	window time.Duration

	mu      sync.Mutex
	windows map[string]*Window
}

// NewLimiter creates a keyed limiter allowing limit requests per window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   int64(limit),
		window:  window,
		windows: make(map[string]*Window),
	}
}

// Allow records one request for the key and reports whether it stayed within
// the limit. The first limit requests within a window are allowed; request
// limit+1 is rejected.
func (l *Limiter) Allow(key string) CheckResult {
	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok {
		w = NewWindow(l.window)
		l.windows[key] = w
	}
	l.mu.Unlock()

	current := w.Add(1)
	res := CheckResult{
		Allowed: current <= l.limit,
		Limit:   l.limit,
		Current: current,
	}
	if !res.Allowed {
		res.RetryAfter = l.window
	}
	return res
}

// Reset clears the window for a key. Mainly useful in tests.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[key]; ok {
		w.Reset()
	}
}
