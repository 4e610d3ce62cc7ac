package models

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the publication state of a content item
type Status string

const (
	StatusDraft         Status = "Draft"
	StatusReview        Status = "Review"
	StatusApproved      Status = "Approved"
	StatusPublished     Status = "Published"
	StatusArchived      Status = "Archived"
	StatusNeedsRevision Status = "Needs Revision"
	StatusRejected      Status = "Rejected"
)

// ErrInvalidStatus is returned for any value outside the status enumeration
var ErrInvalidStatus = errors.New("invalid content status")

var allStatuses = []Status{
	StatusDraft,
	StatusReview,
	StatusApproved,
	StatusPublished,
	StatusArchived,
	StatusNeedsRevision,
	StatusRejected,
}

// AllStatuses returns every valid status in display order
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is one of the seven known statuses
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus matches s exactly against the enumeration
func ParseStatus(s string) (Status, error) {
	status := Status(strings.TrimSpace(s))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}
