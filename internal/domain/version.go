package domain

import (
	"errors"
	"strings"
	"time"
)

// Version is an immutable snapshot of an artifact's content. A version
// is created once and never mutated; edits always produce a new version.
type Version struct {
	ID            string
	ArtifactID    string
	VersionString string
	Content       string
	ContentHash   string
	// DiffFromParent is the unified-diff text against the immediate
	// predecessor. Empty for the first version of an artifact.
	DiffFromParent string
	ChangeSummary  string
	AuthorID       string
	CreatedAt      time.Time
}

func (v Version) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return errors.New("version id is required")
	}
	if strings.TrimSpace(v.ArtifactID) == "" {
		return errors.New("artifact id is required")
	}
	if strings.TrimSpace(v.VersionString) == "" {
		return errors.New("version string is required")
	}
	if strings.TrimSpace(v.ContentHash) == "" {
		return errors.New("content hash is required")
	}
	hash, err := ContentHash(v.Content)
	if err != nil {
		return err
	}
	if hash != v.ContentHash {
		return errors.New("content hash does not match content")
	}
	return nil
}
