package ratelimit

import (
	"sync"
	"time"
)

// Window is a sliding-window counter over a rolling time period. Old buckets
// outside the window are pruned on access.
type Window struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	mu         sync.Mutex
}

// bucket is a single time-stamped counter cell.
type bucket struct {
	start time.Time
	value int64
}

// NewWindow creates a sliding window of the given duration. Bucket
// granularity is one second, floored at one bucket for sub-second windows.
func NewWindow(window time.Duration) *Window {
	bucketSize := time.Second
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
		bucketSize = window
	}
	return &Window{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, n),
	}
}

// Add increments the counter and returns the total count within the window
// including the increment.
func (w *Window) Add(n int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.pruneLocked(now)

	idx := w.indexLocked(now)
	bstart := now.Truncate(w.bucketSize)
	if !w.buckets[idx].start.Equal(bstart) {
		// Reclaim the cell from a previous cycle of the circular buffer.
		w.buckets[idx] = bucket{start: bstart}
	}
	w.buckets[idx].value += n

	return w.sumLocked()
}

// Sum returns the total count within the window.
func (w *Window) Sum() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(time.Now())
	return w.sumLocked()
}

// Reset clears all buckets.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.buckets {
		w.buckets[i] = bucket{}
	}
}

func (w *Window) indexLocked(now time.Time) int {
	return int(now.UnixNano()/int64(w.bucketSize)) % len(w.buckets)
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	for i := range w.buckets {
		if !w.buckets[i].start.IsZero() && w.buckets[i].start.Before(cutoff) {
			w.buckets[i] = bucket{}
		}
	}
}

func (w *Window) sumLocked() int64 {
	var sum int64
	for i := range w.buckets {
		sum += w.buckets[i].value
	}
	return sum
}
