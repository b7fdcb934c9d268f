// Package versionstore implements artifact version lifecycle: creation,
// append-only history, diffs between versions, and rollback.
package versionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptops-labs/promptops-go/internal/diffengine"
	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/repo"
	"github.com/promptops-labs/promptops-go/internal/semver"
)

// ErrVersionConflict reports a version write lost to a concurrent
// writer, or an explicit version string that does not advance the head.
var ErrVersionConflict = errors.New("version conflict")

// maxAppendRetries bounds the re-read-and-retry loop for auto-numbered
// versions after a lost head compare-and-swap.
const maxAppendRetries = 3

type Store struct {
	artifacts repo.ArtifactRepository
	versions  repo.VersionRepository
	engine    *diffengine.Engine
	cache     *diffengine.Cache
	audit     repo.AuditEventAppender
	logger    *slog.Logger
	now       func() time.Time
}

func NewStore(
	artifacts repo.ArtifactRepository,
	versions repo.VersionRepository,
	engine *diffengine.Engine,
	cache *diffengine.Cache,
	audit repo.AuditEventAppender,
	logger *slog.Logger,
) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		artifacts: artifacts,
		versions:  versions,
		engine:    engine,
		cache:     cache,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateArtifactParams struct {
	Slug        string
	Name        string
	Description string
	Metadata    domain.Metadata
	Content     string
	AuthorID    string
	RequestID   string
}

// CreateArtifact registers a new artifact together with its first
// version, numbered 1.0.0 with an empty parent diff.
func (s *Store) CreateArtifact(ctx context.Context, params CreateArtifactParams) (domain.Artifact, domain.Version, error) {
	hash, err := domain.ContentHash(params.Content)
	if err != nil {
		return domain.Artifact{}, domain.Version{}, err
	}

	createdAt := s.now().UTC()
	artifact := domain.Artifact{
		ID:          uuid.NewString(),
		Slug:        strings.TrimSpace(params.Slug),
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		Status:      domain.ArtifactStatusDraft,
		Metadata:    params.Metadata,
		CreatedAt:   createdAt,
		CreatedBy:   strings.TrimSpace(params.AuthorID),
		UpdatedAt:   createdAt,
	}
	if err := artifact.Validate(); err != nil {
		return domain.Artifact{}, domain.Version{}, err
	}

	version := domain.Version{
		ID:            uuid.NewString(),
		ArtifactID:    artifact.ID,
		VersionString: semver.Initial,
		Content:       params.Content,
		ContentHash:   hash,
		ChangeSummary: "Initial version",
		AuthorID:      strings.TrimSpace(params.AuthorID),
		CreatedAt:     createdAt,
	}

	if err := s.artifacts.CreateArtifact(ctx, artifact); err != nil {
		return domain.Artifact{}, domain.Version{}, err
	}
	if err := s.versions.AppendVersion(ctx, version, ""); err != nil {
		return domain.Artifact{}, domain.Version{}, err
	}
	artifact.HeadVersionID = version.ID

	s.appendAudit(ctx, params.AuthorID, params.RequestID, "artifact.create", "artifact", artifact.ID, map[string]any{
		"slug":    artifact.Slug,
		"version": version.VersionString,
	})
	s.logger.InfoContext(ctx, "artifact created",
		"artifact_id", artifact.ID,
		"slug", artifact.Slug,
		"version", version.VersionString,
	)
	return artifact, version, nil
}

type CreateVersionParams struct {
	ArtifactID    string
	Content       string
	ChangeSummary string
	AuthorID      string
	RequestID     string
	// VersionString pins the new version explicitly. Empty means bump
	// the head's patch component.
	VersionString string
}

// CreateVersion appends a new head version. When the content equals the
// current head's content the write is a no-op and the head is returned
// unchanged. Auto-numbered writes retry a lost head race; explicitly
// numbered writes fail with ErrVersionConflict instead, since the
// caller pinned a version under a head that no longer exists.
func (s *Store) CreateVersion(ctx context.Context, params CreateVersionParams) (domain.Version, error) {
	artifactID := strings.TrimSpace(params.ArtifactID)
	if artifactID == "" {
		return domain.Version{}, errors.New("artifact id is required")
	}
	hash, err := domain.ContentHash(params.Content)
	if err != nil {
		return domain.Version{}, err
	}
	explicit := strings.TrimSpace(params.VersionString)
	if explicit != "" && !semver.Valid(explicit) {
		return domain.Version{}, fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", explicit)
	}

	for attempt := 0; ; attempt++ {
		head, err := s.versions.GetHead(ctx, artifactID)
		if err != nil {
			return domain.Version{}, err
		}
		if head.ContentHash == hash {
			return head, nil
		}

		versionString := explicit
		if versionString == "" {
			versionString, err = semver.BumpPatch(head.VersionString)
			if err != nil {
				return domain.Version{}, err
			}
		} else {
			cmp, err := semver.Compare(versionString, head.VersionString)
			if err != nil {
				return domain.Version{}, err
			}
			if cmp <= 0 {
				return domain.Version{}, fmt.Errorf("version %s does not advance head %s: %w", versionString, head.VersionString, ErrVersionConflict)
			}
		}

		diff, err := s.engine.Diff(head.Content, params.Content)
		if err != nil {
			return domain.Version{}, err
		}
		diff.FromVersion = head.VersionString
		diff.ToVersion = versionString

		version := domain.Version{
			ID:             uuid.NewString(),
			ArtifactID:     artifactID,
			VersionString:  versionString,
			Content:        params.Content,
			ContentHash:    hash,
			DiffFromParent: diffengine.Unified(diff, diffengine.DefaultContextLines),
			ChangeSummary:  strings.TrimSpace(params.ChangeSummary),
			AuthorID:       strings.TrimSpace(params.AuthorID),
			CreatedAt:      s.now().UTC(),
		}
		if err := version.Validate(); err != nil {
			return domain.Version{}, err
		}

		err = s.versions.AppendVersion(ctx, version, head.ID)
		if err == nil {
			s.appendAudit(ctx, params.AuthorID, params.RequestID, "version.create", "version", version.ID, map[string]any{
				"artifact_id": artifactID,
				"version":     version.VersionString,
				"parent":      head.VersionString,
			})
			s.logger.InfoContext(ctx, "version created",
				"artifact_id", artifactID,
				"version", version.VersionString,
				"parent", head.VersionString,
			)
			return version, nil
		}
		if !errors.Is(err, repo.ErrConflict) {
			return domain.Version{}, err
		}
		if explicit != "" || attempt+1 >= maxAppendRetries {
			return domain.Version{}, fmt.Errorf("append version for artifact %s: %w", artifactID, ErrVersionConflict)
		}
		s.logger.WarnContext(ctx, "head moved during version append, retrying",
			"artifact_id", artifactID,
			"attempt", attempt+1,
		)
	}
}

// GetVersion resolves a version by string; empty means the current head.
func (s *Store) GetVersion(ctx context.Context, artifactID, versionString string) (domain.Version, error) {
	if strings.TrimSpace(versionString) == "" {
		return s.versions.GetHead(ctx, artifactID)
	}
	return s.versions.GetVersion(ctx, artifactID, strings.TrimSpace(versionString))
}

// ListVersions returns the artifact's history, newest first.
func (s *Store) ListVersions(ctx context.Context, artifactID string, limit, offset int) ([]domain.Version, error) {
	return s.versions.ListVersions(ctx, repo.VersionFilter{
		ArtifactID: artifactID,
		Limit:      limit,
		Offset:     offset,
	})
}

// Diff computes the full chunk sequence between two stored versions.
// Either side may be empty to mean the current head. Results are cached
// under the resolved version pair; versions are immutable, so cache
// entries never go stale.
func (s *Store) Diff(ctx context.Context, artifactID, fromVersion, toVersion string) (domain.DiffResult, error) {
	from, err := s.GetVersion(ctx, artifactID, fromVersion)
	if err != nil {
		return domain.DiffResult{}, err
	}
	to, err := s.GetVersion(ctx, artifactID, toVersion)
	if err != nil {
		return domain.DiffResult{}, err
	}

	if cached, ok := s.cache.Get(artifactID, from.VersionString, to.VersionString); ok {
		return cached, nil
	}
	result, err := s.engine.Diff(from.Content, to.Content)
	if err != nil {
		return domain.DiffResult{}, err
	}
	result.FromVersion = from.VersionString
	result.ToVersion = to.VersionString
	s.cache.Add(artifactID, from.VersionString, to.VersionString, result)
	return result, nil
}

type RollbackParams struct {
	ArtifactID    string
	TargetVersion string
	Reason        string
	AuthorID      string
	RequestID     string
}

// Rollback restores a prior version's content as a new head version.
// History is never rewritten: rolling back from 1.0.1 to 1.0.0 produces
// 1.0.2 carrying 1.0.0's content.
func (s *Store) Rollback(ctx context.Context, params RollbackParams) (domain.Version, error) {
	target, err := s.versions.GetVersion(ctx, strings.TrimSpace(params.ArtifactID), strings.TrimSpace(params.TargetVersion))
	if err != nil {
		return domain.Version{}, err
	}

	summary := fmt.Sprintf("Rollback to version %s", target.VersionString)
	if reason := strings.TrimSpace(params.Reason); reason != "" {
		summary = fmt.Sprintf("%s: %s", summary, reason)
	}

	version, err := s.CreateVersion(ctx, CreateVersionParams{
		ArtifactID:    params.ArtifactID,
		Content:       target.Content,
		ChangeSummary: summary,
		AuthorID:      params.AuthorID,
		RequestID:     params.RequestID,
	})
	if err != nil {
		return domain.Version{}, err
	}

	s.appendAudit(ctx, params.AuthorID, params.RequestID, "version.rollback", "version", version.ID, map[string]any{
		"artifact_id":    params.ArtifactID,
		"target_version": target.VersionString,
		"new_version":    version.VersionString,
	})
	return version, nil
}

// UpdateStatus moves an artifact through its lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, artifactID string, status domain.ArtifactStatus, actor, requestID string) error {
	if !status.Valid() {
		return fmt.Errorf("artifact status %q is invalid", status)
	}
	if err := s.artifacts.UpdateArtifactStatus(ctx, artifactID, status); err != nil {
		return err
	}
	s.appendAudit(ctx, actor, requestID, "artifact.status", "artifact", artifactID, map[string]any{
		"status": string(status),
	})
	return nil
}

// DeleteArtifact removes the artifact and its owned versions and
// benchmark results.
func (s *Store) DeleteArtifact(ctx context.Context, artifactID string, actor, requestID string) error {
	if err := s.artifacts.DeleteArtifact(ctx, artifactID); err != nil {
		return err
	}
	s.appendAudit(ctx, actor, requestID, "artifact.delete", "artifact", artifactID, nil)
	return nil
}

// appendAudit records a mutation. Audit failures are logged, not
// propagated; the mutation itself already committed.
func (s *Store) appendAudit(ctx context.Context, actor, requestID, action, resourceType, resourceID string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	if strings.TrimSpace(actor) == "" {
		actor = "system"
	}
	_, err := s.audit.Append(ctx, domain.AuditEvent{
		OccurredAt:   s.now().UTC(),
		Actor:        strings.TrimSpace(actor),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    strings.TrimSpace(requestID),
		Payload:      payload,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "append audit event failed",
			"action", action,
			"resource_id", resourceID,
			"error", err,
		)
	}
}
