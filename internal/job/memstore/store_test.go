package memstore_test

import (
	"context"
	"testing"

	"mixdown/internal/job"
	"mixdown/internal/job/memstore"
)

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	store := memstore.New()
	defer store.Close()
	ctx := context.Background()

	first, err := store.Create(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.Create(ctx, "https://example.com/b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", first.ID, second.ID)
	}
	if first.Status != job.StatusPending || first.Progress != 0 {
		t.Fatalf("new job not pending at zero progress: %+v", first)
	}
	if first.CreatedAt.IsZero() || !first.CreatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("timestamps not initialized: %+v", first)
	}
}

func TestCreateRejectsEmptyURL(t *testing.T) {
	store := memstore.New()
	if _, err := store.Create(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank source url")
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	store := memstore.New()
	record, err := store.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestGetReturnsClone(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	created, _ := store.Create(ctx, "https://example.com/a")

	got, _ := store.Get(ctx, created.ID)
	got.Title = "mutated"

	again, _ := store.Get(ctx, created.ID)
	if again.Title != "" {
		t.Fatalf("store leaked internal record: %q", again.Title)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	for _, url := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		if _, err := store.Create(ctx, url); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("records out of order at %d", i)
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID > prev.ID {
			t.Fatalf("equal timestamps not broken by descending id at %d", i)
		}
	}
}

func TestListByStatus(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	a, _ := store.Create(ctx, "https://example.com/a")
	b, _ := store.Create(ctx, "https://example.com/b")
	if _, err := store.Update(ctx, b.ID, job.Patch{Status: job.StatusOf(job.StatusFailed)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	failed, err := store.ListByStatus(ctx, job.StatusFailed)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != b.ID {
		t.Fatalf("unexpected failed set: %+v", failed)
	}

	all, err := store.ListByStatus(ctx)
	if err != nil {
		t.Fatalf("list by status (none): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("no-filter list len = %d, want 2", len(all))
	}
	_ = a
}

func TestUpdateMissingReturnsNilNil(t *testing.T) {
	store := memstore.New()
	record, err := store.Update(context.Background(), 404, job.Patch{Progress: job.Int(50)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record for missing job, got %+v", record)
	}
}

func TestUpdateAppliesPatchAtomically(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	created, _ := store.Create(ctx, "https://example.com/a")

	updated, err := store.Update(ctx, created.ID, job.Patch{
		Status:   job.StatusOf(job.StatusProcessing),
		Progress: job.Int(15),
		Title:    job.String("My Song"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != job.StatusProcessing || updated.Progress != 15 || updated.Title != "My Song" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	created, _ := store.Create(ctx, "https://example.com/a")

	existed, err := store.Delete(ctx, created.ID)
	if err != nil || !existed {
		t.Fatalf("first delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, created.ID)
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
	if record, _ := store.Get(ctx, created.ID); record != nil {
		t.Fatal("record still present after delete")
	}
}

func TestStats(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	store.Create(ctx, "https://example.com/1")
	b, _ := store.Create(ctx, "https://example.com/2")
	store.Update(ctx, b.ID, job.Patch{Status: job.StatusOf(job.StatusCompleted)})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[job.StatusPending] != 1 || stats[job.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestUsers(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID != 1 || created.Name != "alice" {
		t.Fatalf("unexpected user: %+v", created)
	}

	if _, err := store.CreateUser(ctx, "alice", "other"); err == nil {
		t.Fatal("duplicate user name must be rejected")
	}

	found, err := store.GetUserByName(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if found == nil || found.Credential != "secret" {
		t.Fatalf("unexpected lookup result: %+v", found)
	}

	missing, err := store.GetUserByName(ctx, "bob")
	if err != nil || missing != nil {
		t.Fatalf("missing user should be (nil, nil), got %+v, %v", missing, err)
	}
}
