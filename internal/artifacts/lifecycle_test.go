package artifacts_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"mixdown/internal/artifacts"
	"mixdown/internal/blob"
	"mixdown/internal/job/memstore"
	"mixdown/internal/logging"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

func newManager(t *testing.T) (*artifacts.Manager, *memstore.Store, *blob.FSStore) {
	t.Helper()
	store := memstore.New()
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	return artifacts.NewManager(store, blobs, logging.NewNop()), store, blobs
}

func storeBytes(t *testing.T, blobs *blob.FSStore, key, content string) {
	t.Helper()
	sink, err := blobs.Create(key)
	if err != nil {
		t.Fatalf("create blob: %v", err)
	}
	if _, err := sink.Write([]byte(content)); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close blob: %v", err)
	}
}

func TestResolveCompletedArtifact(t *testing.T) {
	manager, store, blobs := newManager(t)
	record := testsupport.MustCreateJob(t, store, "https://example.com/v")
	storeBytes(t, blobs, "job-1-key.mp3", "mp3 bytes")
	testsupport.MustCompleteJob(t, store, record.ID, "job-1-key.mp3", "Song-1.mp3", 9)

	artifact, err := manager.Resolve(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer artifact.Reader.Close()
	if artifact.Name != "Song-1.mp3" || artifact.Size != 9 {
		t.Fatalf("artifact = %+v", artifact)
	}
	content, err := io.ReadAll(artifact.Reader)
	if err != nil || string(content) != "mp3 bytes" {
		t.Fatalf("content = %q, err = %v", content, err)
	}
}

func TestResolveMissingJob(t *testing.T) {
	manager, _, _ := newManager(t)
	if _, err := manager.Resolve(context.Background(), 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestResolvePendingJob(t *testing.T) {
	manager, store, _ := newManager(t)
	record := testsupport.MustCreateJob(t, store, "https://example.com/v")

	if _, err := manager.Resolve(context.Background(), record.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestResolveVanishedBytes(t *testing.T) {
	manager, store, _ := newManager(t)
	record := testsupport.MustCreateJob(t, store, "https://example.com/v")
	testsupport.MustCompleteJob(t, store, record.ID, "job-1-reaped.mp3", "Song-1.mp3", 5)

	if _, err := manager.Resolve(context.Background(), record.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestDeleteRemovesRecordAndBytes(t *testing.T) {
	manager, store, blobs := newManager(t)
	record := testsupport.MustCreateJob(t, store, "https://example.com/v")
	storeBytes(t, blobs, "job-1-key.mp3", "x")
	testsupport.MustCompleteJob(t, store, record.ID, "job-1-key.mp3", "Song-1.mp3", 1)

	existed, err := manager.Delete(context.Background(), record.ID)
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	if blobs.Exists("job-1-key.mp3") {
		t.Fatal("artifact bytes survived deletion")
	}
	if got, _ := store.Get(context.Background(), record.ID); got != nil {
		t.Fatalf("record survived deletion: %+v", got)
	}

	existed, err = manager.Delete(context.Background(), record.ID)
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestDeletePendingJobWithoutArtifact(t *testing.T) {
	manager, store, _ := newManager(t)
	record := testsupport.MustCreateJob(t, store, "https://example.com/v")

	existed, err := manager.Delete(context.Background(), record.ID)
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
}
