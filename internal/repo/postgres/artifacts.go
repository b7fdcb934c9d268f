package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
)

const artifactColumns = "artifact_id, slug, name, description, status, head_version_id, metadata, created_at, created_by, updated_at"

type ArtifactStore struct {
	db DB
}

func NewArtifactStore(db DB) *ArtifactStore {
	if db == nil {
		return nil
	}
	return &ArtifactStore{db: db}
}

func (s *ArtifactStore) CreateArtifact(ctx context.Context, artifact domain.Artifact) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("artifact store not initialized")
	}
	if err := artifact.Validate(); err != nil {
		return err
	}
	metadataJSON, err := encodeMetadata(artifact.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	createdAt := normalizeTime(artifact.CreatedAt)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (
			artifact_id,
			slug,
			name,
			description,
			status,
			head_version_id,
			metadata,
			created_at,
			created_by,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		strings.TrimSpace(artifact.ID),
		strings.TrimSpace(artifact.Slug),
		strings.TrimSpace(artifact.Name),
		nullString(artifact.Description),
		string(artifact.Status),
		nullString(artifact.HeadVersionID),
		metadataJSON,
		createdAt,
		strings.TrimSpace(artifact.CreatedBy),
		normalizeTime(artifact.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("artifact slug %s: %w", artifact.Slug, repo.ErrConflict)
		}
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (s *ArtifactStore) GetArtifact(ctx context.Context, id string) (domain.Artifact, error) {
	if s == nil || s.db == nil {
		return domain.Artifact{}, fmt.Errorf("artifact store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Artifact{}, fmt.Errorf("artifact id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE artifact_id = $1`,
		id,
	)
	return scanArtifact(row)
}

func (s *ArtifactStore) GetArtifactBySlug(ctx context.Context, slug string) (domain.Artifact, error) {
	if s == nil || s.db == nil {
		return domain.Artifact{}, fmt.Errorf("artifact store not initialized")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Artifact{}, fmt.Errorf("artifact slug is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE slug = $1`,
		slug,
	)
	return scanArtifact(row)
}

func (s *ArtifactStore) ListArtifacts(ctx context.Context, filter repo.ArtifactFilter) ([]domain.Artifact, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("artifact store not initialized")
	}
	query, args := buildArtifactListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := make([]domain.Artifact, 0)
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return artifacts, nil
}

func buildArtifactListQuery(filter repo.ArtifactFilter) (string, []any) {
	args := make([]any, 0, 3)
	query := `SELECT ` + artifactColumns + ` FROM artifacts`
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, artifact_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (s *ArtifactStore) UpdateArtifactStatus(ctx context.Context, id string, status domain.ArtifactStatus) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("artifact store not initialized")
	}
	if !status.Valid() {
		return fmt.Errorf("artifact status %q is invalid", status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE artifacts SET status = $1, updated_at = $2 WHERE artifact_id = $3`,
		string(status),
		time.Now().UTC(),
		strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("update artifact status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update artifact status: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *ArtifactStore) DeleteArtifact(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("artifact store not initialized")
	}
	// Versions and benchmark results cascade via foreign keys.
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM artifacts WHERE artifact_id = $1`,
		strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (domain.Artifact, error) {
	var artifact domain.Artifact
	var description sql.NullString
	var headVersionID sql.NullString
	var metadataJSON []byte
	if err := row.Scan(
		&artifact.ID,
		&artifact.Slug,
		&artifact.Name,
		&description,
		&artifact.Status,
		&headVersionID,
		&metadataJSON,
		&artifact.CreatedAt,
		&artifact.CreatedBy,
		&artifact.UpdatedAt,
	); err != nil {
		return domain.Artifact{}, handleNotFound(err)
	}
	if description.Valid {
		artifact.Description = description.String
	}
	if headVersionID.Valid {
		artifact.HeadVersionID = headVersionID.String
	}
	meta, err := decodeMetadata(metadataJSON)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("decode metadata: %w", err)
	}
	artifact.Metadata = meta
	return artifact, nil
}
