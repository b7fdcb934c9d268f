package rollout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/gates"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

type fakeVersions struct {
	head domain.Version
	err  error
}

func (f *fakeVersions) AppendVersion(context.Context, domain.Version, string) error {
	return errors.New("not implemented")
}

func (f *fakeVersions) GetHead(context.Context, string) (domain.Version, error) {
	return f.head, f.err
}

func (f *fakeVersions) GetVersion(context.Context, string, string) (domain.Version, error) {
	return f.head, f.err
}

func (f *fakeVersions) ListVersions(context.Context, repo.VersionFilter) ([]domain.Version, error) {
	return nil, nil
}

type fakeResults struct {
	byVersion map[string]domain.BenchmarkResult
	history   []domain.BenchmarkResult
}

func (f *fakeResults) CreateResult(context.Context, domain.BenchmarkResult) error {
	return errors.New("not implemented")
}

func (f *fakeResults) ListResults(context.Context, repo.BenchmarkFilter) ([]domain.BenchmarkResult, error) {
	return f.history, nil
}

func (f *fakeResults) LatestResult(_ context.Context, versionID string) (domain.BenchmarkResult, error) {
	result, ok := f.byVersion[versionID]
	if !ok {
		return domain.BenchmarkResult{}, repo.ErrNotFound
	}
	return result, nil
}

func fptr(v float64) *float64 { return &v }

func testSpec(t *testing.T) gates.Spec {
	t.Helper()
	spec := gates.Spec{
		Schema: gates.SpecSchemaV1,
		Environments: map[string][]gates.Rule{
			"default": {
				{ID: "min", Name: "Minimum overall score", Kind: gates.KindMinimumScore, Blocking: true, Threshold: fptr(75)},
			},
			"production": {
				{ID: "min", Name: "Minimum overall score", Kind: gates.KindMinimumScore, Blocking: true, Threshold: fptr(85)},
				{ID: "regress", Name: "No regression", Kind: gates.KindNoRegression, Blocking: false, Tolerance: fptr(2)},
			},
		},
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("spec: %v", err)
	}
	return spec
}

func TestCheckReadinessDeployable(t *testing.T) {
	head := domain.Version{ID: "ver-2", ArtifactID: "art-1", VersionString: "1.0.1"}
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	latest := domain.BenchmarkResult{ID: "r2", ArtifactID: "art-1", VersionID: "ver-2", OverallScore: 90, ExecutedAt: at}
	prior := domain.BenchmarkResult{ID: "r1", ArtifactID: "art-1", VersionID: "ver-1", OverallScore: 88, ExecutedAt: at.Add(-time.Hour)}

	facade := NewFacade(testSpec(t),
		&fakeVersions{head: head},
		&fakeResults{
			byVersion: map[string]domain.BenchmarkResult{"ver-2": latest},
			history:   []domain.BenchmarkResult{latest, prior},
		})

	verdict, err := facade.CheckReadiness(context.Background(), "art-1", "production")
	if err != nil {
		t.Fatalf("readiness: %v", err)
	}
	if !verdict.CanDeploy {
		t.Fatalf("expected deployable, blockers=%v", verdict.Blockers)
	}
	if len(verdict.Evaluations) != 2 {
		t.Fatalf("evaluations = %d, want 2", len(verdict.Evaluations))
	}
}

func TestCheckReadinessRegressionWarns(t *testing.T) {
	head := domain.Version{ID: "ver-2", ArtifactID: "art-1", VersionString: "1.0.1"}
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	latest := domain.BenchmarkResult{ID: "r2", ArtifactID: "art-1", VersionID: "ver-2", OverallScore: 86, ExecutedAt: at}
	prior := domain.BenchmarkResult{ID: "r1", ArtifactID: "art-1", VersionID: "ver-1", OverallScore: 92, ExecutedAt: at.Add(-time.Hour)}

	facade := NewFacade(testSpec(t),
		&fakeVersions{head: head},
		&fakeResults{
			byVersion: map[string]domain.BenchmarkResult{"ver-2": latest},
			history:   []domain.BenchmarkResult{latest, prior},
		})

	verdict, err := facade.CheckReadiness(context.Background(), "art-1", "production")
	if err != nil {
		t.Fatalf("readiness: %v", err)
	}
	if !verdict.CanDeploy {
		t.Fatalf("non-blocking regression must not block, blockers=%v", verdict.Blockers)
	}
	if len(verdict.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", verdict.Warnings)
	}
}

func TestCheckReadinessNoBenchmark(t *testing.T) {
	head := domain.Version{ID: "ver-1", ArtifactID: "art-1", VersionString: "1.0.0"}
	facade := NewFacade(testSpec(t), &fakeVersions{head: head}, &fakeResults{})

	_, err := facade.CheckReadiness(context.Background(), "art-1", "production")
	if !errors.Is(err, ErrNoBenchmark) {
		t.Fatalf("expected ErrNoBenchmark, got %v", err)
	}
}

func TestCheckReadinessFallsBackToDefaultEnvironment(t *testing.T) {
	head := domain.Version{ID: "ver-1", ArtifactID: "art-1", VersionString: "1.0.0"}
	latest := domain.BenchmarkResult{ID: "r1", ArtifactID: "art-1", VersionID: "ver-1", OverallScore: 80, ExecutedAt: time.Now()}

	facade := NewFacade(testSpec(t),
		&fakeVersions{head: head},
		&fakeResults{
			byVersion: map[string]domain.BenchmarkResult{"ver-1": latest},
			history:   []domain.BenchmarkResult{latest},
		})

	// staging is not configured; the default rules (threshold 75) apply.
	verdict, err := facade.CheckReadiness(context.Background(), "art-1", "staging")
	if err != nil {
		t.Fatalf("readiness: %v", err)
	}
	if !verdict.CanDeploy {
		t.Fatalf("expected pass under default rules, blockers=%v", verdict.Blockers)
	}
}

func TestCheckReadinessUnknownArtifact(t *testing.T) {
	facade := NewFacade(testSpec(t), &fakeVersions{err: repo.ErrNotFound}, &fakeResults{})
	_, err := facade.CheckReadiness(context.Background(), "missing", "production")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
