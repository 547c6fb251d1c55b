package risk

import (
	"math"
	"sync"
)

// ZScoreSignal scores behavioral risk as the streaming z-score of a numeric
// context attribute against its own running distribution (Welford's online
// mean/variance). Values near the historical mean score low; outliers score
// high. The z-score is squashed into [0,1] via 1 - 1/(1+|z|).
//
// Until MinSamples observations have been seen the signal returns a neutral
// 0.5, since the distribution is not yet meaningful.
type ZScoreSignal struct {
	// Key is the numeric context key to observe (e.g. "request.size").
	Key string

	// MinSamples is the warm-up observation count. Defaults to 10.
	MinSamples int

	mu    sync.Mutex
	count int64
	mean  float64
	m2    float64
}

// NewZScoreSignal creates a streaming z-score signal over the given key.
func NewZScoreSignal(key string, minSamples int) *ZScoreSignal {
	if minSamples <= 0 {
		minSamples = 10
	}
	return &ZScoreSignal{Key: key, MinSamples: minSamples}
}

// Name returns "behavior".
func (z *ZScoreSignal) Name() string { return "behavior" }

// Score observes the context value and returns its anomaly score. Contexts
// without the key (or with a non-numeric value) score a neutral 0.5 and do
// not update the distribution.
func (z *ZScoreSignal) Score(ctx map[string]any) float64 {
	v, ok := numericKey(ctx, z.Key)
	if !ok {
		return 0.5
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	// Score against the distribution before folding the observation in, so
	// the first outlier after warm-up is still flagged.
	score := 0.5
	if z.count >= int64(z.MinSamples) {
		variance := z.m2 / float64(z.count-1)
		stddev := math.Sqrt(variance)
		if stddev == 0 {
			if v == z.mean {
				score = 0.0
			} else {
				score = 1.0
			}
		} else {
			zval := math.Abs(v-z.mean) / stddev
			score = 1.0 - 1.0/(1.0+zval)
		}
	}

	// Welford update.
	z.count++
	delta := v - z.mean
	z.mean += delta / float64(z.count)
	z.m2 += delta * (v - z.mean)

	return score
}

func numericKey(ctx map[string]any, key string) (float64, bool) {
	v, ok := ctx[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}
