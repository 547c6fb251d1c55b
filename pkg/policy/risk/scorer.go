package risk

import (
	"fmt"
	"log/slog"
)

// Signal produces one named sub-score in [0,1] from a request context.
// Higher values mean higher contextual risk. Implementations must be safe
// for concurrent use.
type Signal interface {
	// Name identifies the sub-score (e.g. "device", "location", "behavior").
	Name() string

	// Score computes the sub-score for the context.
	Score(ctx map[string]any) float64
}

// Aggregation selects how sub-scores combine into the final score.
type Aggregation string

const (
	// AggregationMean averages all sub-scores (the default).
	AggregationMean Aggregation = "mean"

	// AggregationWeighted averages sub-scores by per-signal weight.
	AggregationWeighted Aggregation = "weighted"

	// AggregationMax takes the worst sub-score.
	AggregationMax Aggregation = "max"
)

// Valid reports whether the aggregation is known.
func (a Aggregation) Valid() bool {
	switch a {
	case AggregationMean, AggregationWeighted, AggregationMax:
		return true
	}
	return false
}

// Score is the result of one scoring pass: the aggregate value plus the
// named sub-scores it was derived from.
type Score struct {
	// Value is the aggregate risk in [0,1].
	Value float64 `json:"value"`

	// Signals maps signal name to its sub-score.
	Signals map[string]float64 `json:"signals"`
}

// Config configures the scorer.
type Config struct {
	// Aggregation is the combine strategy. Defaults to mean.
	Aggregation Aggregation

	// Weights holds per-signal weights for AggregationWeighted. Signals
	// without a weight default to 1.
	Weights map[string]float64
}

// Scorer combines pluggable signals into one contextual risk score.
type Scorer struct {
	signals []Signal
	agg     Aggregation
	weights map[string]float64
	logger  *slog.Logger
}

// NewScorer creates a scorer over the given signals.
func NewScorer(cfg *Config, signals ...Signal) (*Scorer, error) {
	agg := AggregationMean
	var weights map[string]float64
	if cfg != nil {
		if cfg.Aggregation != "" {
			agg = cfg.Aggregation
		}
		weights = cfg.Weights
	}
	if !agg.Valid() {
		return nil, fmt.Errorf("unknown aggregation %q", agg)
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("scorer requires at least one signal")
	}

	return &Scorer{
		signals: signals,
		agg:     agg,
		weights: weights,
		logger:  slog.Default().With("component", "policy.risk"),
	}, nil
}

// Score computes the aggregate risk for a context. Sub-scores are clamped to
// [0,1] before aggregation so a misbehaving signal cannot push the result
// out of range.
func (s *Scorer) Score(ctx map[string]any) Score {
	subs := make(map[string]float64, len(s.signals))
	for _, sig := range s.signals {
		subs[sig.Name()] = clamp01(sig.Score(ctx))
	}

	var value float64
	switch s.agg {
	case AggregationMax:
		for _, v := range subs {
			if v > value {
				value = v
			}
		}
	case AggregationWeighted:
		var sum, wsum float64
		for _, sig := range s.signals {
			w := 1.0
			if sw, ok := s.weights[sig.Name()]; ok {
				w = sw
			}
			sum += subs[sig.Name()] * w
			wsum += w
		}
		if wsum > 0 {
			value = sum / wsum
		}
	default: // mean
		var sum float64
		for _, v := range subs {
			sum += v
		}
		value = sum / float64(len(subs))
	}

	return Score{Value: clamp01(value), Signals: subs}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
