package testsupport

import (
	"context"
	"testing"
	"time"

	"mixdown/internal/job"
)

// MustCreateJob creates a pending job or fails the test.
func MustCreateJob(t testing.TB, store job.Store, sourceURL string) *job.Job {
	t.Helper()
	record, err := store.Create(context.Background(), sourceURL)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return record
}

// MustCompleteJob transitions a job to completed with artifact fields set,
// or fails the test.
func MustCompleteJob(t testing.TB, store job.Store, id int64, key, name string, size int64) *job.Job {
	t.Helper()
	now := time.Now().UTC()
	record, err := store.Update(context.Background(), id, job.Patch{
		Status:       job.StatusOf(job.StatusCompleted),
		Progress:     job.Int(100),
		ArtifactKey:  job.String(key),
		ArtifactName: job.String(name),
		ArtifactSize: job.Int64(size),
		CompletedAt:  job.Time(now),
	})
	if err != nil {
		t.Fatalf("complete job %d: %v", id, err)
	}
	if record == nil {
		t.Fatalf("complete job %d: record vanished", id)
	}
	return record
}
