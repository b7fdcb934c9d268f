package domain

import (
	"errors"
	"strings"
	"time"
)

// Artifact is a named, versioned text asset. It owns an append-only,
// linear list of versions; HeadVersionID points at the version with the
// greatest version string.
type Artifact struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	Status        ArtifactStatus
	HeadVersionID string
	Metadata      Metadata
	CreatedAt     time.Time
	CreatedBy     string
	UpdatedAt     time.Time
}

func (a Artifact) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("artifact id is required")
	}
	if strings.TrimSpace(a.Slug) == "" {
		return errors.New("artifact slug is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("artifact name is required")
	}
	if !a.Status.Valid() {
		return errors.New("artifact status is invalid")
	}
	return nil
}
