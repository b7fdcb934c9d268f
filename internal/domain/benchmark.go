package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BenchmarkResult records one benchmark run against a version. Results
// are append-only; a version may accumulate many, and "latest" is
// defined by ExecutedAt.
type BenchmarkResult struct {
	ID              string
	VersionID       string
	ArtifactID      string
	VersionString   string
	SuiteID         string
	DimensionScores map[string]float64
	OverallScore    float64
	// BaselineScore is the overall score of a prior reference run.
	// nil means no baseline, which is distinct from a baseline of zero.
	BaselineScore *float64
	Delta         *float64
	GatePassed    bool
	ExecutedAt    time.Time
	ExecutedBy    string
}

func (r BenchmarkResult) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("benchmark result id is required")
	}
	if strings.TrimSpace(r.VersionID) == "" {
		return errors.New("version id is required")
	}
	if strings.TrimSpace(r.ArtifactID) == "" {
		return errors.New("artifact id is required")
	}
	if strings.TrimSpace(r.SuiteID) == "" {
		return errors.New("suite id is required")
	}
	if len(r.DimensionScores) == 0 {
		return errors.New("dimension scores are required")
	}
	for name, score := range r.DimensionScores {
		if strings.TrimSpace(name) == "" {
			return errors.New("dimension name is required")
		}
		if score < 0 || score > 100 {
			return fmt.Errorf("dimension %q score %.1f outside [0,100]", name, score)
		}
	}
	return nil
}
