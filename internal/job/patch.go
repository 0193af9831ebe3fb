package job

import "time"

// Patch describes a partial update to a job record. Only non-nil fields are
// applied, field by field, under the store's atomicity guarantee.
type Patch struct {
	Title        *string
	Status       *Status
	Progress     *int
	ArtifactKey  *string
	ArtifactName *string
	ArtifactSize *int64
	ErrorDetail  *string
	CompletedAt  *time.Time
}

// Apply merges the patch into the record and stamps UpdatedAt.
func (p Patch) Apply(j *Job, now time.Time) {
	if j == nil {
		return
	}
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Progress != nil {
		j.Progress = *p.Progress
	}
	if p.ArtifactKey != nil {
		j.ArtifactKey = *p.ArtifactKey
	}
	if p.ArtifactName != nil {
		j.ArtifactName = *p.ArtifactName
	}
	if p.ArtifactSize != nil {
		j.ArtifactSize = *p.ArtifactSize
	}
	if p.ErrorDetail != nil {
		j.ErrorDetail = *p.ErrorDetail
	}
	if p.CompletedAt != nil {
		at := p.CompletedAt.UTC()
		j.CompletedAt = &at
	}
	j.UpdatedAt = now.UTC()
}

// String returns a pointer to value for patch construction.
func String(value string) *string { return &value }

// Int returns a pointer to value for patch construction.
func Int(value int) *int { return &value }

// Int64 returns a pointer to value for patch construction.
func Int64(value int64) *int64 { return &value }

// StatusOf returns a pointer to value for patch construction.
func StatusOf(value Status) *Status { return &value }

// Time returns a pointer to value for patch construction.
func Time(value time.Time) *time.Time { return &value }
