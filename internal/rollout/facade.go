// Package rollout decides whether an artifact's head version is ready
// to deploy to an environment.
package rollout

import (
	"context"
	"errors"
	"fmt"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/gates"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

// ErrNoBenchmark reports a readiness check against a head version that
// has never been benchmarked. Readiness is always decided on evidence,
// never by default.
var ErrNoBenchmark = errors.New("no benchmark result for head version")

// historyLimit bounds how much benchmark history feeds regression rules.
const historyLimit = 50

type Facade struct {
	spec      gates.Spec
	evaluator *gates.Evaluator
	versions  repo.VersionRepository
	results   repo.BenchmarkRepository
}

func NewFacade(spec gates.Spec, versions repo.VersionRepository, results repo.BenchmarkRepository) *Facade {
	return &Facade{
		spec:      spec,
		evaluator: gates.NewEvaluator(),
		versions:  versions,
		results:   results,
	}
}

// CheckReadiness evaluates the environment's gate rules against the
// newest benchmark result of the artifact's head version.
func (f *Facade) CheckReadiness(ctx context.Context, artifactID, environment string) (domain.GateVerdict, error) {
	rules, err := f.spec.RulesFor(environment)
	if err != nil {
		return domain.GateVerdict{}, err
	}

	head, err := f.versions.GetHead(ctx, artifactID)
	if err != nil {
		return domain.GateVerdict{}, err
	}

	latest, err := f.results.LatestResult(ctx, head.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.GateVerdict{}, fmt.Errorf("artifact %s version %s: %w", artifactID, head.VersionString, ErrNoBenchmark)
	}
	if err != nil {
		return domain.GateVerdict{}, err
	}

	history, err := f.results.ListResults(ctx, repo.BenchmarkFilter{
		ArtifactID: artifactID,
		Limit:      historyLimit,
	})
	if err != nil {
		return domain.GateVerdict{}, err
	}

	return f.evaluator.Evaluate(rules, latest, history)
}
