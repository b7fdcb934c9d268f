package gates

import (
	"fmt"
	"strings"
	"time"

	"github.com/promptops-labs/promptops-go/internal/domain"
)

// ErrUnsupportedRule reports a rule kind the evaluator does not
// implement. The whole evaluation fails; no partial verdict is
// produced.
var ErrUnsupportedRule = fmt.Errorf("unsupported gate rule kind")

// ErrInvalidRule reports a rule whose kind is recognized but whose
// required parameter is missing. Evaluate checks parameters itself
// rather than trusting the caller to have run Spec.Validate.
var ErrInvalidRule = fmt.Errorf("invalid gate rule")

// Evaluator turns an ordered rule list and benchmark evidence into a
// deployment verdict.
type Evaluator struct {
	now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// Evaluate runs every rule in order against the latest benchmark
// result. history holds the artifact's earlier results, newest first,
// and feeds the regression rules. A failed blocking rule blocks
// deployment; a failed non-blocking rule degrades to a warning.
func (e *Evaluator) Evaluate(rules []Rule, latest domain.BenchmarkResult, history []domain.BenchmarkResult) (domain.GateVerdict, error) {
	verdict := domain.GateVerdict{
		CanDeploy:   true,
		Evaluations: make([]domain.GateEvaluation, 0, len(rules)),
		EvaluatedAt: e.now().UTC(),
	}
	for _, rule := range rules {
		passed, message, err := e.applyRule(rule, latest, history)
		if err != nil {
			return domain.GateVerdict{}, err
		}
		eval := domain.GateEvaluation{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Status:   domain.GateStatusPassed,
			Message:  message,
			Blocking: rule.Blocking,
		}
		if !passed {
			if rule.Blocking {
				eval.Status = domain.GateStatusFailed
				verdict.CanDeploy = false
				verdict.Blockers = append(verdict.Blockers, fmt.Sprintf("%s: %s", rule.Name, message))
			} else {
				eval.Status = domain.GateStatusWarning
				verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("%s: %s", rule.Name, message))
			}
		}
		verdict.Evaluations = append(verdict.Evaluations, eval)
	}
	verdict.Summary = summarize(len(rules), verdict)
	return verdict, nil
}

func (e *Evaluator) applyRule(rule Rule, latest domain.BenchmarkResult, history []domain.BenchmarkResult) (bool, string, error) {
	switch strings.ToLower(strings.TrimSpace(rule.Kind)) {
	case KindMinimumScore:
		if rule.Threshold == nil {
			return false, "", fmt.Errorf("%w: rule %q requires threshold", ErrInvalidRule, rule.ID)
		}
		threshold := *rule.Threshold
		if latest.OverallScore >= threshold {
			return true, fmt.Sprintf("overall score %.1f meets minimum %.1f", latest.OverallScore, threshold), nil
		}
		return false, fmt.Sprintf("overall score %.1f below minimum %.1f", latest.OverallScore, threshold), nil
	case KindDimensionFloor:
		if rule.Threshold == nil || strings.TrimSpace(rule.Dimension) == "" {
			return false, "", fmt.Errorf("%w: rule %q requires dimension and threshold", ErrInvalidRule, rule.ID)
		}
		threshold := *rule.Threshold
		score, ok := latest.DimensionScores[rule.Dimension]
		if !ok {
			return false, fmt.Sprintf("dimension %q missing from benchmark result", rule.Dimension), nil
		}
		if score >= threshold {
			return true, fmt.Sprintf("dimension %q score %.1f meets floor %.1f", rule.Dimension, score, threshold), nil
		}
		return false, fmt.Sprintf("dimension %q score %.1f below floor %.1f", rule.Dimension, score, threshold), nil
	case KindNoRegression:
		if rule.Tolerance == nil {
			return false, "", fmt.Errorf("%w: rule %q requires tolerance", ErrInvalidRule, rule.ID)
		}
		tolerance := *rule.Tolerance
		prior, ok := priorResult(latest, history)
		if !ok {
			return true, "no prior benchmark to compare against", nil
		}
		drop := prior.OverallScore - latest.OverallScore
		if drop <= tolerance {
			return true, fmt.Sprintf("overall score %.1f within tolerance %.1f of prior %.1f", latest.OverallScore, tolerance, prior.OverallScore), nil
		}
		return false, fmt.Sprintf("overall score dropped %.1f from prior %.1f, exceeding tolerance %.1f", drop, prior.OverallScore, tolerance), nil
	case KindBenchmarkFreshness:
		if rule.MaxAgeHours == nil {
			return false, "", fmt.Errorf("%w: rule %q requires max_age_hours", ErrInvalidRule, rule.ID)
		}
		maxAge := *rule.MaxAgeHours
		ageHours := e.now().UTC().Sub(latest.ExecutedAt.UTC()).Hours()
		if ageHours <= maxAge {
			return true, fmt.Sprintf("benchmark is %.1f hours old (max %.1fh)", ageHours, maxAge), nil
		}
		return false, fmt.Sprintf("benchmark is stale (%.1f hours old, max %.1fh)", ageHours, maxAge), nil
	default:
		return false, "", fmt.Errorf("%w: %q", ErrUnsupportedRule, rule.Kind)
	}
}

// priorResult picks the newest result that is not the one under
// evaluation and was not executed after it.
func priorResult(latest domain.BenchmarkResult, history []domain.BenchmarkResult) (domain.BenchmarkResult, bool) {
	for _, result := range history {
		if result.ID == latest.ID {
			continue
		}
		if result.ExecutedAt.After(latest.ExecutedAt) {
			continue
		}
		return result, true
	}
	return domain.BenchmarkResult{}, false
}

func summarize(total int, verdict domain.GateVerdict) string {
	if len(verdict.Blockers) > 0 {
		return fmt.Sprintf("%d of %d quality gates failed. Deployment blocked.", len(verdict.Blockers), total)
	}
	if len(verdict.Warnings) > 0 {
		return fmt.Sprintf("All blocking quality gates passed with %d warning(s).", len(verdict.Warnings))
	}
	return fmt.Sprintf("All %d quality gates passed. Ready for deployment.", total)
}
