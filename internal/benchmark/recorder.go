package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

// DefaultGateThreshold is the aggregator-level pass mark used when the
// caller supplies none.
const DefaultGateThreshold = 80.0

// RecordParams carries one finished benchmark run into the registry.
// The execution engine itself is an external collaborator; the recorder
// only consumes its numeric results.
type RecordParams struct {
	ArtifactID      string
	VersionString   string // empty means head
	SuiteID         string
	DimensionScores map[string]float64
	Weights         map[string]float64
	// GateThreshold nil means DefaultGateThreshold; an explicit zero is
	// a legitimate always-pass mark.
	GateThreshold *float64
	ExecutedBy    string
}

// Recorder persists benchmark results, deriving the baseline from the
// most recent prior result of the same artifact.
type Recorder struct {
	versions repo.VersionRepository
	results  repo.BenchmarkRepository
	now      func() time.Time
}

func NewRecorder(versions repo.VersionRepository, results repo.BenchmarkRepository) *Recorder {
	return &Recorder{
		versions: versions,
		results:  results,
		now:      time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, params RecordParams) (domain.BenchmarkResult, error) {
	if r == nil || r.versions == nil || r.results == nil {
		return domain.BenchmarkResult{}, fmt.Errorf("benchmark recorder not initialized")
	}
	artifactID := strings.TrimSpace(params.ArtifactID)
	if artifactID == "" {
		return domain.BenchmarkResult{}, errors.New("artifact id is required")
	}
	suiteID := strings.TrimSpace(params.SuiteID)
	if suiteID == "" {
		suiteID = "default"
	}
	threshold := DefaultGateThreshold
	if params.GateThreshold != nil {
		threshold = *params.GateThreshold
	}

	var version domain.Version
	var err error
	if strings.TrimSpace(params.VersionString) == "" {
		version, err = r.versions.GetHead(ctx, artifactID)
	} else {
		version, err = r.versions.GetVersion(ctx, artifactID, strings.TrimSpace(params.VersionString))
	}
	if err != nil {
		return domain.BenchmarkResult{}, err
	}

	baseline, err := r.baselineScore(ctx, artifactID)
	if err != nil {
		return domain.BenchmarkResult{}, err
	}

	agg, err := Fold(params.DimensionScores, params.Weights, baseline, threshold)
	if err != nil {
		return domain.BenchmarkResult{}, err
	}

	result := domain.BenchmarkResult{
		ID:              uuid.NewString(),
		VersionID:       version.ID,
		ArtifactID:      artifactID,
		VersionString:   version.VersionString,
		SuiteID:         suiteID,
		DimensionScores: params.DimensionScores,
		OverallScore:    agg.OverallScore,
		BaselineScore:   baseline,
		Delta:           agg.Delta,
		GatePassed:      agg.GatePassed,
		ExecutedAt:      r.now().UTC(),
		ExecutedBy:      strings.TrimSpace(params.ExecutedBy),
	}
	if err := result.Validate(); err != nil {
		return domain.BenchmarkResult{}, err
	}
	if err := r.results.CreateResult(ctx, result); err != nil {
		return domain.BenchmarkResult{}, err
	}
	return result, nil
}

// baselineScore is the overall score of the artifact's most recent
// result, nil when the artifact has never been benchmarked.
func (r *Recorder) baselineScore(ctx context.Context, artifactID string) (*float64, error) {
	prior, err := r.results.ListResults(ctx, repo.BenchmarkFilter{ArtifactID: artifactID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(prior) == 0 {
		return nil, nil
	}
	score := prior[0].OverallScore
	return &score, nil
}
