package ratelimit

import (
	"testing"
	"time"
)

// ===== Limiter Tests =====

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := NewLimiter(100, time.Minute)

	for i := 1; i <= 100; i++ {
		res := l.Allow("203.0.113.7")
		if !res.Allowed {
			t.Fatalf("Expected request %d to be allowed", i)
		}
		if res.Current != int64(i) {
			t.Errorf("Expected current count %d, got %d", i, res.Current)
		}
	}

	res := l.Allow("203.0.113.7")
	if res.Allowed {
		t.Error("Expected request 101 to be rejected")
	}
	if res.Current != 101 {
		t.Errorf("Expected current count 101, got %d", res.Current)
	}
	if res.RetryAfter != time.Minute {
		t.Errorf("Expected RetryAfter %v, got %v", time.Minute, res.RetryAfter)
	}
}

func TestLimiterKeysAreIsolated(t *testing.T) {
	l := NewLimiter(2, time.Minute)

	l.Allow("a")
	l.Allow("a")
	if res := l.Allow("a"); res.Allowed {
		t.Error("Expected key a to be over its limit")
	}

	if res := l.Allow("b"); !res.Allowed {
		t.Error("Expected key b to start with a fresh window")
	}
}

func TestLimiterAllowedResultHasNoRetryAfter(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	res := l.Allow("k")
	if res.RetryAfter != 0 {
		t.Errorf("Expected zero RetryAfter for allowed request, got %v", res.RetryAfter)
	}
	if res.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", res.Limit)
	}
}

func TestLimiterReset(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	l.Allow("k")
	if res := l.Allow("k"); res.Allowed {
		t.Fatal("Expected second request to be rejected")
	}

	l.Reset("k")
	if res := l.Allow("k"); !res.Allowed {
		t.Error("Expected request after Reset to be allowed")
	}

	// Resetting an unknown key is harmless.
	l.Reset("never-seen")
}

func TestLimiterWindowExpiry(t *testing.T) {
	l := NewLimiter(2, 100*time.Millisecond)

	l.Allow("k")
	l.Allow("k")
	if res := l.Allow("k"); res.Allowed {
		t.Fatal("Expected third request to be rejected")
	}

	time.Sleep(150 * time.Millisecond)

	if res := l.Allow("k"); !res.Allowed {
		t.Error("Expected request after window expiry to be allowed")
	}
}

// ===== Window Tests =====

func TestWindowSum(t *testing.T) {
	w := NewWindow(time.Minute)

	if got := w.Add(3); got != 3 {
		t.Errorf("Expected sum 3, got %d", got)
	}
	if got := w.Add(2); got != 5 {
		t.Errorf("Expected sum 5, got %d", got)
	}
	if got := w.Sum(); got != 5 {
		t.Errorf("Expected Sum 5, got %d", got)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(time.Minute)
	w.Add(10)
	w.Reset()
	if got := w.Sum(); got != 0 {
		t.Errorf("Expected sum 0 after Reset, got %d", got)
	}
}

func TestWindowPrunesOldCounts(t *testing.T) {
	w := NewWindow(100 * time.Millisecond)
	w.Add(4)

	time.Sleep(150 * time.Millisecond)

	if got := w.Sum(); got != 0 {
		t.Errorf("Expected old counts pruned, got sum %d", got)
	}
}
