package benchmark

import (
	"errors"
	"testing"
)

func TestFoldUniformMean(t *testing.T) {
	baseline := 75.0
	agg, err := Fold(map[string]float64{"clarity": 90, "safety": 70}, nil, &baseline, 80)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if agg.OverallScore != 80.0 {
		t.Fatalf("overall = %v, want 80.0", agg.OverallScore)
	}
	if agg.Delta == nil || *agg.Delta != 5.0 {
		t.Fatalf("delta = %v, want 5.0", agg.Delta)
	}
	if !agg.GatePassed {
		t.Fatalf("expected gate passed at threshold 80")
	}
}

func TestFoldNoBaselineMeansNoDelta(t *testing.T) {
	agg, err := Fold(map[string]float64{"clarity": 88}, nil, nil, 90)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if agg.Delta != nil {
		t.Fatalf("expected absent delta, got %v", *agg.Delta)
	}
	if agg.GatePassed {
		t.Fatalf("expected gate failed at threshold 90")
	}
}

func TestFoldWeighted(t *testing.T) {
	scores := map[string]float64{"clarity": 100, "safety": 50}
	weights := map[string]float64{"clarity": 3, "safety": 1}
	agg, err := Fold(scores, weights, nil, 0)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if agg.OverallScore != 87.5 {
		t.Fatalf("overall = %v, want 87.5", agg.OverallScore)
	}
}

func TestFoldMissingWeightDefaultsToOne(t *testing.T) {
	scores := map[string]float64{"a": 100, "b": 50}
	weights := map[string]float64{"a": 1}
	agg, err := Fold(scores, weights, nil, 0)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if agg.OverallScore != 75.0 {
		t.Fatalf("overall = %v, want 75.0", agg.OverallScore)
	}
}

func TestFoldEmptyScores(t *testing.T) {
	if _, err := Fold(nil, nil, nil, 80); !errors.Is(err, ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got %v", err)
	}
	if _, err := Fold(map[string]float64{}, nil, nil, 80); !errors.Is(err, ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got %v", err)
	}
}

func TestFoldRejectsOutOfRangeAndNegativeWeight(t *testing.T) {
	if _, err := Fold(map[string]float64{"a": 101}, nil, nil, 0); err == nil {
		t.Fatalf("expected error for score above 100")
	}
	if _, err := Fold(map[string]float64{"a": -1}, nil, nil, 0); err == nil {
		t.Fatalf("expected error for negative score")
	}
	if _, err := Fold(map[string]float64{"a": 50}, map[string]float64{"a": -1}, nil, 0); err == nil {
		t.Fatalf("expected error for negative weight")
	}
	if _, err := Fold(map[string]float64{"a": 50}, map[string]float64{"a": 0}, nil, 0); err == nil {
		t.Fatalf("expected error for zero total weight")
	}
}

func TestFoldOverallWithinScoreRange(t *testing.T) {
	cases := []map[string]float64{
		{"a": 10, "b": 90},
		{"a": 33.3, "b": 66.6, "c": 99.9},
		{"only": 42},
		{"a": 0, "b": 0},
		{"a": 100, "b": 100, "c": 100},
	}
	for _, scores := range cases {
		agg, err := Fold(scores, nil, nil, 0)
		if err != nil {
			t.Fatalf("fold %v: %v", scores, err)
		}
		min, max := 100.0, 0.0
		for _, s := range scores {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		// Rounding to one decimal stays within a half-tenth of the mean,
		// which can never escape the [min, max] envelope.
		if agg.OverallScore < min-0.05 || agg.OverallScore > max+0.05 {
			t.Fatalf("overall %v outside [%v, %v] for %v", agg.OverallScore, min, max, scores)
		}
	}
}
