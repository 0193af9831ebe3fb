package job

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one conversion request's full lifecycle record.
//
// Identifier and SourceURL are immutable after creation. Title is set once by
// the pipeline's metadata phase. Artifact fields and ErrorDetail are mutually
// exclusive and only set when the status is terminal.
type Job struct {
	ID           int64
	SourceURL    string
	Title        string
	Status       Status
	Progress     int
	ArtifactKey  string
	ArtifactName string
	ArtifactSize int64
	ErrorDetail  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// HasArtifact reports whether a backing artifact reference has been recorded.
func (j *Job) HasArtifact() bool {
	return j != nil && j.ArtifactKey != ""
}

// Clone returns a deep copy so callers can hand records across goroutines.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// User is an account record kept alongside jobs for completeness of the
// store contract. The pipeline never touches users.
type User struct {
	ID         int64
	Name       string
	Credential string
	CreatedAt  time.Time
}
