package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

const versionColumns = "version_id, artifact_id, version_string, content, content_hash, diff_from_parent, change_summary, author_id, created_at"

type VersionStore struct {
	db TxDB
}

func NewVersionStore(db TxDB) *VersionStore {
	if db == nil {
		return nil
	}
	return &VersionStore{db: db}
}

// AppendVersion inserts the version and advances the artifact's head
// pointer in one transaction. The head update is conditional on the
// head still being expectedHeadID (NULL for a first version); when the
// condition misses no row is updated, nothing is inserted, and the
// caller gets repo.ErrConflict.
func (s *VersionStore) AppendVersion(ctx context.Context, version domain.Version, expectedHeadID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("version store not initialized")
	}
	if err := version.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append version: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := normalizeTime(version.CreatedAt)
	var res sql.Result
	if strings.TrimSpace(expectedHeadID) == "" {
		res, err = tx.ExecContext(
			ctx,
			`UPDATE artifacts SET head_version_id = $1, updated_at = $2
			 WHERE artifact_id = $3 AND head_version_id IS NULL`,
			strings.TrimSpace(version.ID),
			createdAt,
			strings.TrimSpace(version.ArtifactID),
		)
	} else {
		res, err = tx.ExecContext(
			ctx,
			`UPDATE artifacts SET head_version_id = $1, updated_at = $2
			 WHERE artifact_id = $3 AND head_version_id = $4`,
			strings.TrimSpace(version.ID),
			createdAt,
			strings.TrimSpace(version.ArtifactID),
			strings.TrimSpace(expectedHeadID),
		)
	}
	if err != nil {
		return fmt.Errorf("advance head: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance head: %w", err)
	}
	if affected == 0 {
		if exists, existsErr := artifactExists(ctx, tx, version.ArtifactID); existsErr != nil {
			return existsErr
		} else if !exists {
			return repo.ErrNotFound
		}
		return fmt.Errorf("head moved for artifact %s: %w", version.ArtifactID, repo.ErrConflict)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO artifact_versions (
			version_id,
			artifact_id,
			version_string,
			content,
			content_hash,
			diff_from_parent,
			change_summary,
			author_id,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		strings.TrimSpace(version.ID),
		strings.TrimSpace(version.ArtifactID),
		strings.TrimSpace(version.VersionString),
		version.Content,
		strings.TrimSpace(version.ContentHash),
		version.DiffFromParent,
		nullString(version.ChangeSummary),
		nullString(version.AuthorID),
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("version %s for artifact %s: %w", version.VersionString, version.ArtifactID, repo.ErrConflict)
		}
		return fmt.Errorf("insert version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append version: %w", err)
	}
	return nil
}

func artifactExists(ctx context.Context, q DB, artifactID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM artifacts WHERE artifact_id = $1)`,
		strings.TrimSpace(artifactID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check artifact: %w", err)
	}
	return exists, nil
}

func (s *VersionStore) GetHead(ctx context.Context, artifactID string) (domain.Version, error) {
	if s == nil || s.db == nil {
		return domain.Version{}, fmt.Errorf("version store not initialized")
	}
	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return domain.Version{}, fmt.Errorf("artifact id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+prefixedVersionColumns("v")+`
		 FROM artifact_versions v
		 JOIN artifacts a ON a.head_version_id = v.version_id
		 WHERE a.artifact_id = $1`,
		artifactID,
	)
	return scanVersion(row)
}

func (s *VersionStore) GetVersion(ctx context.Context, artifactID, versionString string) (domain.Version, error) {
	if s == nil || s.db == nil {
		return domain.Version{}, fmt.Errorf("version store not initialized")
	}
	artifactID = strings.TrimSpace(artifactID)
	versionString = strings.TrimSpace(versionString)
	if artifactID == "" || versionString == "" {
		return domain.Version{}, fmt.Errorf("artifact id and version string are required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+versionColumns+` FROM artifact_versions
		 WHERE artifact_id = $1 AND version_string = $2`,
		artifactID,
		versionString,
	)
	return scanVersion(row)
}

func (s *VersionStore) ListVersions(ctx context.Context, filter repo.VersionFilter) ([]domain.Version, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("version store not initialized")
	}
	query, args, err := buildVersionListQuery(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := make([]domain.Version, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func buildVersionListQuery(filter repo.VersionFilter) (string, []any, error) {
	if strings.TrimSpace(filter.ArtifactID) == "" {
		return "", nil, fmt.Errorf("artifact id is required")
	}
	args := []any{strings.TrimSpace(filter.ArtifactID)}
	query := `SELECT ` + versionColumns + ` FROM artifact_versions WHERE artifact_id = $1 ORDER BY created_at DESC, version_string DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args, nil
}

func prefixedVersionColumns(alias string) string {
	cols := strings.Split(versionColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func scanVersion(row rowScanner) (domain.Version, error) {
	var version domain.Version
	var changeSummary sql.NullString
	var authorID sql.NullString
	if err := row.Scan(
		&version.ID,
		&version.ArtifactID,
		&version.VersionString,
		&version.Content,
		&version.ContentHash,
		&version.DiffFromParent,
		&changeSummary,
		&authorID,
		&version.CreatedAt,
	); err != nil {
		return domain.Version{}, handleNotFound(err)
	}
	if changeSummary.Valid {
		version.ChangeSummary = changeSummary.String
	}
	if authorID.Valid {
		version.AuthorID = authorID.String
	}
	return version, nil
}
