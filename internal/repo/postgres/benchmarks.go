package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

const benchmarkColumns = "result_id, version_id, artifact_id, version_string, suite_id, dimension_scores, overall_score, baseline_score, delta, gate_passed, executed_at, executed_by"

type BenchmarkStore struct {
	db DB
}

func NewBenchmarkStore(db DB) *BenchmarkStore {
	if db == nil {
		return nil
	}
	return &BenchmarkStore{db: db}
}

func (s *BenchmarkStore) CreateResult(ctx context.Context, result domain.BenchmarkResult) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("benchmark store not initialized")
	}
	if err := result.Validate(); err != nil {
		return err
	}
	scoresJSON, err := encodeScores(result.DimensionScores)
	if err != nil {
		return fmt.Errorf("encode dimension scores: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO benchmark_results (
			result_id,
			version_id,
			artifact_id,
			version_string,
			suite_id,
			dimension_scores,
			overall_score,
			baseline_score,
			delta,
			gate_passed,
			executed_at,
			executed_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		strings.TrimSpace(result.ID),
		strings.TrimSpace(result.VersionID),
		strings.TrimSpace(result.ArtifactID),
		strings.TrimSpace(result.VersionString),
		strings.TrimSpace(result.SuiteID),
		scoresJSON,
		result.OverallScore,
		nullFloat(result.BaselineScore),
		nullFloat(result.Delta),
		result.GatePassed,
		normalizeTime(result.ExecutedAt),
		nullString(result.ExecutedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("benchmark result %s: %w", result.ID, repo.ErrConflict)
		}
		return fmt.Errorf("insert benchmark result: %w", err)
	}
	return nil
}

func (s *BenchmarkStore) ListResults(ctx context.Context, filter repo.BenchmarkFilter) ([]domain.BenchmarkResult, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("benchmark store not initialized")
	}
	query, args := buildBenchmarkListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list benchmark results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.BenchmarkResult, 0)
	for rows.Next() {
		result, err := scanBenchmarkResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan benchmark result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list benchmark results: %w", err)
	}
	return results, nil
}

func buildBenchmarkListQuery(filter repo.BenchmarkFilter) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if strings.TrimSpace(filter.ArtifactID) != "" {
		args = append(args, strings.TrimSpace(filter.ArtifactID))
		clauses = append(clauses, fmt.Sprintf("artifact_id = $%d", len(args)))
	}
	if strings.TrimSpace(filter.VersionID) != "" {
		args = append(args, strings.TrimSpace(filter.VersionID))
		clauses = append(clauses, fmt.Sprintf("version_id = $%d", len(args)))
	}
	if strings.TrimSpace(filter.SuiteID) != "" {
		args = append(args, strings.TrimSpace(filter.SuiteID))
		clauses = append(clauses, fmt.Sprintf("suite_id = $%d", len(args)))
	}

	query := `SELECT ` + benchmarkColumns + ` FROM benchmark_results`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY executed_at DESC, result_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func (s *BenchmarkStore) LatestResult(ctx context.Context, versionID string) (domain.BenchmarkResult, error) {
	if s == nil || s.db == nil {
		return domain.BenchmarkResult{}, fmt.Errorf("benchmark store not initialized")
	}
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return domain.BenchmarkResult{}, fmt.Errorf("version id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+benchmarkColumns+` FROM benchmark_results
		 WHERE version_id = $1
		 ORDER BY executed_at DESC, result_id
		 LIMIT 1`,
		versionID,
	)
	return scanBenchmarkResult(row)
}

func scanBenchmarkResult(row rowScanner) (domain.BenchmarkResult, error) {
	var result domain.BenchmarkResult
	var scoresJSON []byte
	var baseline sql.NullFloat64
	var delta sql.NullFloat64
	var executedBy sql.NullString
	if err := row.Scan(
		&result.ID,
		&result.VersionID,
		&result.ArtifactID,
		&result.VersionString,
		&result.SuiteID,
		&scoresJSON,
		&result.OverallScore,
		&baseline,
		&delta,
		&result.GatePassed,
		&result.ExecutedAt,
		&executedBy,
	); err != nil {
		return domain.BenchmarkResult{}, handleNotFound(err)
	}
	scores, err := decodeScores(scoresJSON)
	if err != nil {
		return domain.BenchmarkResult{}, fmt.Errorf("decode dimension scores: %w", err)
	}
	result.DimensionScores = scores
	result.BaselineScore = floatPtr(baseline)
	result.Delta = floatPtr(delta)
	if executedBy.Valid {
		result.ExecutedBy = executedBy.String
	}
	return result, nil
}
