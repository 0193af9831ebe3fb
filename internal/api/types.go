// Package api defines the JSON payloads shared by the daemon's HTTP surface
// and the CLI client.
package api

import (
	"time"

	"mixdown/internal/job"
)

// JobPayload is the wire form of a conversion job.
type JobPayload struct {
	ID           int64      `json:"id"`
	SourceURL    string     `json:"sourceUrl"`
	Title        string     `json:"title,omitempty"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	ArtifactName string     `json:"artifactName,omitempty"`
	ArtifactSize int64      `json:"artifactSize,omitempty"`
	ErrorDetail  string     `json:"errorDetail,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// FromJob converts a store record to its wire form. The artifact storage key
// stays internal; clients address artifacts through the download endpoints.
func FromJob(record *job.Job) JobPayload {
	return JobPayload{
		ID:           record.ID,
		SourceURL:    record.SourceURL,
		Title:        record.Title,
		Status:       string(record.Status),
		Progress:     record.Progress,
		ArtifactName: record.ArtifactName,
		ArtifactSize: record.ArtifactSize,
		ErrorDetail:  record.ErrorDetail,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		CompletedAt:  record.CompletedAt,
	}
}

// FromJobs converts a record slice, preserving order.
func FromJobs(records []*job.Job) []JobPayload {
	out := make([]JobPayload, 0, len(records))
	for _, record := range records {
		out = append(out, FromJob(record))
	}
	return out
}

// SubmitRequest asks for a single conversion.
type SubmitRequest struct {
	URL string `json:"url"`
}

// BulkSubmitRequest asks for a batch of conversions, all-or-nothing.
type BulkSubmitRequest struct {
	URLs []string `json:"urls"`
}

// JobResponse wraps one job.
type JobResponse struct {
	Job JobPayload `json:"job"`
}

// JobListResponse wraps a job listing, newest first.
type JobListResponse struct {
	Jobs []JobPayload `json:"jobs"`
}

// DependencyStatus reports the availability of an external binary.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// DaemonStatus reports daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StoreBackend string             `json:"storeBackend"`
	ArtifactDir  string             `json:"artifactDir"`
	LockFilePath string             `json:"lockFilePath"`
	JobCounts    map[string]int     `json:"jobCounts"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
