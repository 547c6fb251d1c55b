package risk

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ===== Scorer Tests =====

func TestNewScorerValidation(t *testing.T) {
	if _, err := NewScorer(nil); err == nil {
		t.Error("Expected error for scorer without signals")
	}
	if _, err := NewScorer(&Config{Aggregation: "median"}, StaticSignal{SignalName: "s", Value: 0.5}); err == nil {
		t.Error("Expected error for unknown aggregation")
	}
}

func TestScoreAggregation(t *testing.T) {
	signals := []Signal{
		StaticSignal{SignalName: "a", Value: 0.2},
		StaticSignal{SignalName: "b", Value: 0.8},
	}

	tests := []struct {
		name string
		cfg  *Config
		want float64
	}{
		{"mean default", nil, 0.5},
		{"mean explicit", &Config{Aggregation: AggregationMean}, 0.5},
		{"max", &Config{Aggregation: AggregationMax}, 0.8},
		{"weighted", &Config{
			Aggregation: AggregationWeighted,
			Weights:     map[string]float64{"a": 3, "b": 1},
		}, 0.35},
		{"weighted missing weight defaults to one", &Config{
			Aggregation: AggregationWeighted,
			Weights:     map[string]float64{"b": 3},
		}, 0.65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScorer(tt.cfg, signals...)
			if err != nil {
				t.Fatalf("NewScorer failed: %v", err)
			}
			got := s.Score(map[string]any{})
			if !almostEqual(got.Value, tt.want) {
				t.Errorf("Expected score %.3f, got %.3f", tt.want, got.Value)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	s, err := NewScorer(nil,
		DeviceTrust{},
		LocationTrust{AllowedCountries: []string{"DE", "FR"}},
	)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	ctx := map[string]any{
		"device.trusted": true,
		"request.ip":     "192.0.2.10",
		"geo.country":    "DE",
	}
	first := s.Score(ctx)
	for i := 0; i < 5; i++ {
		if got := s.Score(ctx); !almostEqual(got.Value, first.Value) {
			t.Fatalf("Expected identical score for identical context, got %.3f then %.3f", first.Value, got.Value)
		}
	}
}

func TestScoreClampsMisbehavingSignal(t *testing.T) {
	s, err := NewScorer(&Config{Aggregation: AggregationMax},
		StaticSignal{SignalName: "wild", Value: 7.3},
		StaticSignal{SignalName: "negative", Value: -2},
	)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	got := s.Score(map[string]any{})
	if got.Value != 1.0 {
		t.Errorf("Expected clamped aggregate 1.0, got %.3f", got.Value)
	}
	if got.Signals["wild"] != 1.0 {
		t.Errorf("Expected wild sub-score clamped to 1.0, got %.3f", got.Signals["wild"])
	}
	if got.Signals["negative"] != 0.0 {
		t.Errorf("Expected negative sub-score clamped to 0.0, got %.3f", got.Signals["negative"])
	}
}

func TestScoreExposesSubScores(t *testing.T) {
	s, err := NewScorer(nil, DeviceTrust{}, LocationTrust{})
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	got := s.Score(map[string]any{"device.trusted": true})
	if len(got.Signals) != 2 {
		t.Fatalf("Expected 2 sub-scores, got %d", len(got.Signals))
	}
	if _, ok := got.Signals["device"]; !ok {
		t.Error("Expected device sub-score")
	}
	if _, ok := got.Signals["location"]; !ok {
		t.Error("Expected location sub-score")
	}
}

// ===== Heuristic Signal Tests =====

func TestDeviceTrustScore(t *testing.T) {
	tests := []struct {
		name string
		ctx  map[string]any
		want float64
	}{
		{"trusted", map[string]any{"device.trusted": true}, 0.1},
		{"known untrusted", map[string]any{"device.trusted": false, "device.known": true}, 0.4},
		{"unknown", map[string]any{}, 0.7},
		{"non-bool value ignored", map[string]any{"device.trusted": "yes"}, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (DeviceTrust{}).Score(tt.ctx); !almostEqual(got, tt.want) {
				t.Errorf("Expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestLocationTrustScore(t *testing.T) {
	allow := LocationTrust{AllowedCountries: []string{"DE", "fr"}}

	tests := []struct {
		name   string
		signal LocationTrust
		ctx    map[string]any
		want   float64
	}{
		{"loopback", allow, map[string]any{"request.ip": "127.0.0.1"}, 0.05},
		{"private", allow, map[string]any{"request.ip": "10.1.2.3"}, 0.05},
		{"allowed country", allow, map[string]any{"request.ip": "203.0.113.7", "geo.country": "DE"}, 0.2},
		{"allowed country case-insensitive", allow, map[string]any{"geo.country": "FR"}, 0.2},
		{"disallowed country", allow, map[string]any{"geo.country": "XX"}, 0.8},
		{"country unknown", allow, map[string]any{"request.ip": "203.0.113.7"}, 0.6},
		{"no allow-list", LocationTrust{}, map[string]any{"request.ip": "203.0.113.7"}, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.signal.Score(tt.ctx); !almostEqual(got, tt.want) {
				t.Errorf("Expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

// ===== ZScore Signal Tests =====

func TestZScoreWarmUpNeutral(t *testing.T) {
	z := NewZScoreSignal("request.size", 5)

	for i := 0; i < 5; i++ {
		got := z.Score(map[string]any{"request.size": float64(100 + i)})
		if got != 0.5 {
			t.Errorf("Expected neutral 0.5 during warm-up, got %.3f", got)
		}
	}
}

func TestZScoreFlagsOutlier(t *testing.T) {
	z := NewZScoreSignal("request.size", 5)

	for i := 0; i < 20; i++ {
		z.Score(map[string]any{"request.size": 100.0 + float64(i%3)})
	}

	typical := z.Score(map[string]any{"request.size": 101.0})
	outlier := z.Score(map[string]any{"request.size": 10000.0})

	if outlier <= typical {
		t.Errorf("Expected outlier score %.3f to exceed typical score %.3f", outlier, typical)
	}
	if outlier < 0.9 {
		t.Errorf("Expected extreme outlier to score near 1, got %.3f", outlier)
	}
	if typical > 0.5 {
		t.Errorf("Expected typical value to score low, got %.3f", typical)
	}
}

func TestZScoreConstantSeries(t *testing.T) {
	z := NewZScoreSignal("n", 3)

	for i := 0; i < 10; i++ {
		z.Score(map[string]any{"n": 50.0})
	}

	if got := z.Score(map[string]any{"n": 50.0}); got != 0.0 {
		t.Errorf("Expected 0.0 for repeat of a constant series, got %.3f", got)
	}
	if got := z.Score(map[string]any{"n": 51.0}); got != 1.0 {
		t.Errorf("Expected 1.0 for deviation from a constant series, got %.3f", got)
	}
}

func TestZScoreMissingKeyNeutral(t *testing.T) {
	z := NewZScoreSignal("n", 3)

	if got := z.Score(map[string]any{}); got != 0.5 {
		t.Errorf("Expected neutral 0.5 for missing key, got %.3f", got)
	}
	if got := z.Score(map[string]any{"n": "not a number"}); got != 0.5 {
		t.Errorf("Expected neutral 0.5 for non-numeric value, got %.3f", got)
	}
}
