package repo

import (
	"context"

	"github.com/promptops-labs/promptops-go/internal/domain"
)

type ArtifactFilter struct {
	Status domain.ArtifactStatus
	Limit  int
	Offset int
}

type VersionFilter struct {
	ArtifactID string
	Limit      int
	Offset     int
}

type BenchmarkFilter struct {
	ArtifactID string
	VersionID  string
	SuiteID    string
	Limit      int
}

// ArtifactRepository manages artifacts and their head pointers.
type ArtifactRepository interface {
	CreateArtifact(ctx context.Context, artifact domain.Artifact) error
	GetArtifact(ctx context.Context, id string) (domain.Artifact, error)
	GetArtifactBySlug(ctx context.Context, slug string) (domain.Artifact, error)
	ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]domain.Artifact, error)
	UpdateArtifactStatus(ctx context.Context, id string, status domain.ArtifactStatus) error
	// DeleteArtifact removes the artifact and every owned version and
	// benchmark result; a version never outlives its artifact.
	DeleteArtifact(ctx context.Context, id string) error
}

// VersionRepository manages the append-only, linear version history of
// an artifact.
type VersionRepository interface {
	// AppendVersion inserts version and advances the artifact's head
	// pointer in one atomic step. expectedHeadID is the version id the
	// caller read as head ("" for a first version); if the stored head
	// has moved, AppendVersion fails with ErrConflict and writes
	// nothing.
	AppendVersion(ctx context.Context, version domain.Version, expectedHeadID string) error
	GetHead(ctx context.Context, artifactID string) (domain.Version, error)
	GetVersion(ctx context.Context, artifactID, versionString string) (domain.Version, error)
	ListVersions(ctx context.Context, filter VersionFilter) ([]domain.Version, error)
}

// BenchmarkRepository manages append-only benchmark results.
type BenchmarkRepository interface {
	CreateResult(ctx context.Context, result domain.BenchmarkResult) error
	// ListResults returns results newest-first by ExecutedAt.
	ListResults(ctx context.Context, filter BenchmarkFilter) ([]domain.BenchmarkResult, error)
	// LatestResult returns the most recent result for a version.
	LatestResult(ctx context.Context, versionID string) (domain.BenchmarkResult, error)
}

// AuditEventAppender ensures append-only audit writes.
type AuditEventAppender interface {
	Append(ctx context.Context, event domain.AuditEvent) (int64, error)
}
