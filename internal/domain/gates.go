package domain

import "time"

// GateEvaluation is the outcome of one gate rule in one evaluation run.
type GateEvaluation struct {
	RuleID   string
	RuleName string
	Status   GateStatus
	Message  string
	Blocking bool
}

// GateVerdict is the deployment decision for one artifact version.
// CanDeploy is true iff no blocking rule failed. A verdict is produced
// whole or not at all; evaluation errors never yield a partial verdict.
type GateVerdict struct {
	CanDeploy   bool
	Evaluations []GateEvaluation
	Blockers    []string
	Warnings    []string
	Summary     string
	EvaluatedAt time.Time
}
