package archive_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"mixdown/internal/archive"
	"mixdown/internal/blob"
	"mixdown/internal/job/memstore"
	"mixdown/internal/logging"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

type fixture struct {
	assembler *archive.Assembler
	store     *memstore.Store
	blobs     *blob.FSStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	return fixture{
		assembler: archive.NewAssembler(store, blobs, logging.NewNop()),
		store:     store,
		blobs:     blobs,
	}
}

func (f fixture) completeWithBytes(t *testing.T, key, name, content string) int64 {
	t.Helper()
	record := testsupport.MustCreateJob(t, f.store, "https://example.com/"+key)
	sink, err := f.blobs.Create(key)
	if err != nil {
		t.Fatalf("create blob: %v", err)
	}
	if _, err := sink.Write([]byte(content)); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close blob: %v", err)
	}
	testsupport.MustCompleteJob(t, f.store, record.ID, key, name, int64(len(content)))
	return record.ID
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	members := make(map[string]string, len(zr.File))
	for _, member := range zr.File {
		rc, err := member.Open()
		if err != nil {
			t.Fatalf("open member %q: %v", member.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read member %q: %v", member.Name, err)
		}
		members[member.Name] = string(content)
	}
	return members
}

func TestWriteBundleStreamsCompletedArtifacts(t *testing.T) {
	f := newFixture(t)
	first := f.completeWithBytes(t, "job-1-a.mp3", "First Song-1.mp3", "first bytes")
	second := f.completeWithBytes(t, "job-2-b.mp3", "Second Song-2.mp3", "second bytes")

	var buf bytes.Buffer
	if err := f.assembler.WriteBundle(context.Background(), &buf, []int64{first, second}); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}

	members := readArchive(t, buf.Bytes())
	if len(members) != 2 {
		t.Fatalf("member count = %d: %v", len(members), members)
	}
	if members["First Song-1.mp3"] != "first bytes" {
		t.Fatalf("first member = %q", members["First Song-1.mp3"])
	}
	if members["Second Song-2.mp3"] != "second bytes" {
		t.Fatalf("second member = %q", members["Second Song-2.mp3"])
	}
}

func TestWriteBundleSkipsIneligibleJobs(t *testing.T) {
	f := newFixture(t)
	pending := testsupport.MustCreateJob(t, f.store, "https://example.com/pending")
	completed := f.completeWithBytes(t, "job-2-ok.mp3", "Song-2.mp3", "audio")

	var buf bytes.Buffer
	ids := []int64{pending.ID, 999, completed}
	if err := f.assembler.WriteBundle(context.Background(), &buf, ids); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}

	members := readArchive(t, buf.Bytes())
	if len(members) != 1 || members["Song-2.mp3"] != "audio" {
		t.Fatalf("members = %v", members)
	}
}

func TestWriteBundleSkipsVanishedBytes(t *testing.T) {
	f := newFixture(t)
	gone := f.completeWithBytes(t, "job-1-gone.mp3", "Gone-1.mp3", "x")
	kept := f.completeWithBytes(t, "job-2-kept.mp3", "Kept-2.mp3", "y")
	f.blobs.Remove("job-1-gone.mp3")

	var buf bytes.Buffer
	if err := f.assembler.WriteBundle(context.Background(), &buf, []int64{gone, kept}); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}

	members := readArchive(t, buf.Bytes())
	if len(members) != 1 || members["Kept-2.mp3"] != "y" {
		t.Fatalf("members = %v", members)
	}
}

func TestWriteBundleNothingEligible(t *testing.T) {
	f := newFixture(t)
	pending := testsupport.MustCreateJob(t, f.store, "https://example.com/pending")

	var buf bytes.Buffer
	err := f.assembler.WriteBundle(context.Background(), &buf, []int64{pending.ID, 42})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("bundle started despite having no entries: %d bytes", buf.Len())
	}
}

func TestWriteBundleEmptyRequest(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	if err := f.assembler.WriteBundle(context.Background(), &buf, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestWriteBundleDeduplicatesIdentifiers(t *testing.T) {
	f := newFixture(t)
	id := f.completeWithBytes(t, "job-1-a.mp3", "Song-1.mp3", "audio")

	var buf bytes.Buffer
	if err := f.assembler.WriteBundle(context.Background(), &buf, []int64{id, id, id}); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	members := readArchive(t, buf.Bytes())
	if len(members) != 1 {
		t.Fatalf("duplicate request produced %d members", len(members))
	}
}

func TestWriteBundleDisambiguatesDisplayNames(t *testing.T) {
	f := newFixture(t)
	first := f.completeWithBytes(t, "job-1-a.mp3", "Song.mp3", "one")
	second := f.completeWithBytes(t, "job-2-b.mp3", "Song.mp3", "two")

	var buf bytes.Buffer
	if err := f.assembler.WriteBundle(context.Background(), &buf, []int64{first, second}); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	members := readArchive(t, buf.Bytes())
	if members["Song.mp3"] != "one" || members["Song (1).mp3"] != "two" {
		t.Fatalf("members = %v", members)
	}
}
