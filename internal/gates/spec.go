// Package gates evaluates configured quality-gate rules against
// benchmark results to produce deployment verdicts.
package gates

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const SpecSchemaV1 = "promptops.gates.v1"

// ErrNoRules reports an environment with no configured rules and no
// default to fall back to.
var ErrNoRules = errors.New("no gate rules configured")

// Rule kinds. Parameters are a tagged variant keyed by Kind: each kind
// names the parameters it requires and the validator enforces them, so
// a misconfigured rule is rejected before any evaluation runs.
const (
	KindMinimumScore       = "minimum_score"
	KindDimensionFloor     = "dimension_floor"
	KindNoRegression       = "no_regression"
	KindBenchmarkFreshness = "benchmark_freshness"
)

// Spec is the externally supplied gate configuration: an ordered rule
// list per environment. Rules are never hard-coded in the core.
type Spec struct {
	Schema       string            `json:"schema" yaml:"schema"`
	Environments map[string][]Rule `json:"environments" yaml:"environments"`
}

type Rule struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Blocking bool   `json:"blocking" yaml:"blocking"`

	// Threshold applies to minimum_score and dimension_floor.
	Threshold *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Dimension applies to dimension_floor.
	Dimension string `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	// Tolerance applies to no_regression.
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	// MaxAgeHours applies to benchmark_freshness.
	MaxAgeHours *float64 `json:"max_age_hours,omitempty" yaml:"max_age_hours,omitempty"`
}

// ParseSpec decodes and validates a YAML gate spec.
func ParseSpec(input []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(input, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode gate spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func (s Spec) Validate() error {
	if strings.TrimSpace(s.Schema) != SpecSchemaV1 {
		return fmt.Errorf("spec.schema must be %q", SpecSchemaV1)
	}
	if len(s.Environments) == 0 {
		return errors.New("spec.environments must be non-empty")
	}
	for env, rules := range s.Environments {
		if strings.TrimSpace(env) == "" {
			return errors.New("environment name is required")
		}
		if len(rules) == 0 {
			return fmt.Errorf("environment %q has no rules", env)
		}
		seen := make(map[string]struct{}, len(rules))
		for i, rule := range rules {
			prefix := fmt.Sprintf("environments.%s.rules[%d]", env, i)
			ruleID := strings.TrimSpace(rule.ID)
			if ruleID == "" {
				return fmt.Errorf("%s.id is required", prefix)
			}
			if _, ok := seen[ruleID]; ok {
				return fmt.Errorf("%s.id must be unique (duplicate %q)", prefix, ruleID)
			}
			seen[ruleID] = struct{}{}
			if strings.TrimSpace(rule.Name) == "" {
				return fmt.Errorf("%s.name is required", prefix)
			}
			if err := validateRuleParams(rule, prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRuleParams(rule Rule, prefix string) error {
	switch strings.ToLower(strings.TrimSpace(rule.Kind)) {
	case KindMinimumScore:
		if rule.Threshold == nil {
			return fmt.Errorf("%s.threshold is required for %s", prefix, KindMinimumScore)
		}
		if *rule.Threshold < 0 || *rule.Threshold > 100 {
			return fmt.Errorf("%s.threshold %.1f outside [0,100]", prefix, *rule.Threshold)
		}
	case KindDimensionFloor:
		if strings.TrimSpace(rule.Dimension) == "" {
			return fmt.Errorf("%s.dimension is required for %s", prefix, KindDimensionFloor)
		}
		if rule.Threshold == nil {
			return fmt.Errorf("%s.threshold is required for %s", prefix, KindDimensionFloor)
		}
		if *rule.Threshold < 0 || *rule.Threshold > 100 {
			return fmt.Errorf("%s.threshold %.1f outside [0,100]", prefix, *rule.Threshold)
		}
	case KindNoRegression:
		if rule.Tolerance == nil {
			return fmt.Errorf("%s.tolerance is required for %s", prefix, KindNoRegression)
		}
		if *rule.Tolerance < 0 {
			return fmt.Errorf("%s.tolerance must be >= 0", prefix)
		}
	case KindBenchmarkFreshness:
		if rule.MaxAgeHours == nil {
			return fmt.Errorf("%s.max_age_hours is required for %s", prefix, KindBenchmarkFreshness)
		}
		if *rule.MaxAgeHours <= 0 {
			return fmt.Errorf("%s.max_age_hours must be > 0", prefix)
		}
	case "":
		return fmt.Errorf("%s.kind is required", prefix)
	default:
		return fmt.Errorf("%s.kind unsupported: %q", prefix, rule.Kind)
	}
	return nil
}

// DefaultSpec is the built-in gate configuration used when no spec file
// is supplied: a blocking minimum-score gate, a blocking regression
// check, a blocking safety-dimension floor, and a warning-only
// freshness check under "default".
func DefaultSpec() Spec {
	threshold := 80.0
	safetyFloor := 85.0
	tolerance := 5.0
	maxAge := 24.0
	return Spec{
		Schema: SpecSchemaV1,
		Environments: map[string][]Rule{
			"default": {
				{ID: "score-minimum", Name: "Minimum Score Threshold", Kind: KindMinimumScore, Blocking: true, Threshold: &threshold},
				{ID: "regression-check", Name: "Regression Detection", Kind: KindNoRegression, Blocking: true, Tolerance: &tolerance},
				{ID: "benchmark-freshness", Name: "Benchmark Freshness", Kind: KindBenchmarkFreshness, Blocking: false, MaxAgeHours: &maxAge},
				{ID: "safety-minimum", Name: "Safety Dimension Minimum", Kind: KindDimensionFloor, Blocking: true, Threshold: &safetyFloor, Dimension: "safety"},
			},
		},
	}
}

// RulesFor resolves the ordered rule list for an environment, falling
// back to the "default" environment when the named one is absent.
func (s Spec) RulesFor(environment string) ([]Rule, error) {
	env := strings.TrimSpace(environment)
	if env != "" {
		if rules, ok := s.Environments[env]; ok {
			return rules, nil
		}
	}
	if rules, ok := s.Environments["default"]; ok {
		return rules, nil
	}
	return nil, fmt.Errorf("environment %q: %w", environment, ErrNoRules)
}
