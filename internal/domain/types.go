package domain

// Metadata is free-form key/value data attached to registry entities.
type Metadata map[string]any

// ArtifactStatus tracks where an artifact sits in its deployment lifecycle.
type ArtifactStatus string

const (
	ArtifactStatusDraft    ArtifactStatus = "draft"
	ArtifactStatusReview   ArtifactStatus = "review"
	ArtifactStatusStaged   ArtifactStatus = "staged"
	ArtifactStatusDeployed ArtifactStatus = "deployed"
	ArtifactStatusArchived ArtifactStatus = "archived"
)

func (s ArtifactStatus) Valid() bool {
	switch s {
	case ArtifactStatusDraft, ArtifactStatusReview, ArtifactStatusStaged, ArtifactStatusDeployed, ArtifactStatusArchived:
		return true
	default:
		return false
	}
}

// GateStatus is the outcome of evaluating a single gate rule.
type GateStatus string

const (
	GateStatusPassed  GateStatus = "passed"
	GateStatusFailed  GateStatus = "failed"
	GateStatusWarning GateStatus = "warning"
)

// ChunkKind classifies a diff chunk.
type ChunkKind string

const (
	ChunkContext ChunkKind = "context"
	ChunkAdd     ChunkKind = "add"
	ChunkRemove  ChunkKind = "remove"
)
