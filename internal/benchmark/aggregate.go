// Package benchmark folds per-dimension benchmark scores into overall
// results and records them against artifact versions.
package benchmark

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNoScores reports aggregation over an empty score set. An aggregate
// over zero dimensions is undefined, not zero.
var ErrNoScores = errors.New("no dimension scores to aggregate")

// Aggregate is the folded outcome of one benchmark run.
type Aggregate struct {
	OverallScore float64
	// Delta is overall minus baseline. nil when no baseline was
	// supplied; absence is distinct from a delta of zero.
	Delta      *float64
	GatePassed bool
}

// Fold computes the overall score as the weighted mean of the dimension
// scores, rounded to one decimal place. Weights default to uniform when
// the mapping is nil or omits a dimension. GatePassed is the simple
// aggregator-level check against gateThreshold; the multi-rule gate
// evaluator layers on top of it.
func Fold(scores map[string]float64, weights map[string]float64, baseline *float64, gateThreshold float64) (Aggregate, error) {
	if len(scores) == 0 {
		return Aggregate{}, ErrNoScores
	}

	var weightedSum, totalWeight float64
	for name, score := range scores {
		if strings.TrimSpace(name) == "" {
			return Aggregate{}, errors.New("dimension name is required")
		}
		if score < 0 || score > 100 {
			return Aggregate{}, fmt.Errorf("dimension %q score %.1f outside [0,100]", name, score)
		}
		weight := 1.0
		if weights != nil {
			if w, ok := weights[name]; ok {
				if w < 0 {
					return Aggregate{}, fmt.Errorf("dimension %q weight %.2f is negative", name, w)
				}
				weight = w
			}
		}
		weightedSum += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return Aggregate{}, errors.New("total weight is zero")
	}

	overall := round1(weightedSum / totalWeight)
	out := Aggregate{
		OverallScore: overall,
		GatePassed:   overall >= gateThreshold,
	}
	if baseline != nil {
		delta := round1(overall - *baseline)
		out.Delta = &delta
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
