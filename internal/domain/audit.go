package domain

import (
	"errors"
	"strings"
	"time"
)

// AuditEvent is one append-only record of a registry mutation.
type AuditEvent struct {
	EventID         int64
	OccurredAt      time.Time
	Actor           string
	Action          string
	ResourceType    string
	ResourceID      string
	RequestID       string
	Payload         map[string]any
	IntegritySHA256 string
}

func (e AuditEvent) Validate() error {
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("audit actor is required")
	}
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("audit action is required")
	}
	if strings.TrimSpace(e.ResourceType) == "" {
		return errors.New("audit resource type is required")
	}
	if strings.TrimSpace(e.ResourceID) == "" {
		return errors.New("audit resource id is required")
	}
	return nil
}
