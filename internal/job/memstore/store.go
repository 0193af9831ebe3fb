// Package memstore provides the reference in-memory job store. Durability is
// process lifetime; the SQLite backend is the durable substitute.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mixdown/internal/job"
)

// Store holds job and user records behind a single mutex. Whole-store mutual
// exclusion is fine at this scale; reads never observe a partially applied
// update because records are cloned on the way in and out.
type Store struct {
	mu      sync.Mutex
	jobs    map[int64]*job.Job
	users   map[int64]*job.User
	jobSeq  job.Sequence
	userSeq job.Sequence
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		jobs:  make(map[int64]*job.Job),
		users: make(map[int64]*job.User),
	}
}

// Create inserts a pending job for the source reference.
func (s *Store) Create(ctx context.Context, sourceURL string) (*job.Job, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, fmt.Errorf("source url is required")
	}
	now := time.Now().UTC()
	record := &job.Job{
		ID:        s.jobSeq.Next(),
		SourceURL: sourceURL,
		Status:    job.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[record.ID] = record
	s.mu.Unlock()

	return record.Clone(), nil
}

// Get fetches a job by identifier.
func (s *Store) Get(ctx context.Context, id int64) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id].Clone(), nil
}

// List returns all jobs ordered by creation time, most recent first.
func (s *Store) List(ctx context.Context) ([]*job.Job, error) {
	s.mu.Lock()
	out := make([]*job.Job, 0, len(s.jobs))
	for _, record := range s.jobs {
		out = append(out, record.Clone())
	}
	s.mu.Unlock()

	sortNewestFirst(out)
	return out, nil
}

// ListByStatus returns jobs matching any of the statuses, most recent first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...job.Status) ([]*job.Job, error) {
	if len(statuses) == 0 {
		return s.List(ctx)
	}
	wanted := make(map[job.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	s.mu.Lock()
	var out []*job.Job
	for _, record := range s.jobs {
		if _, ok := wanted[record.Status]; ok {
			out = append(out, record.Clone())
		}
	}
	s.mu.Unlock()

	sortNewestFirst(out)
	return out, nil
}

// Update merges the patch into an existing record. A missing record yields
// (nil, nil) so pipeline callers treat it as "job vanished" rather than a
// fault.
func (s *Store) Update(ctx context.Context, id int64, patch job.Patch) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(record, time.Now())
	return record.Clone(), nil
}

// Delete removes a job record, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false, nil
	}
	delete(s.jobs, id)
	return true, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[job.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[job.Status]int)
	for _, record := range s.jobs {
		stats[record.Status]++
	}
	return stats, nil
}

// CreateUser inserts a user with a unique name.
func (s *Store) CreateUser(ctx context.Context, name, credential string) (*job.User, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("user name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Name == trimmed {
			return nil, fmt.Errorf("user %q already exists", trimmed)
		}
	}
	record := &job.User{
		ID:         s.userSeq.Next(),
		Name:       trimmed,
		Credential: credential,
		CreatedAt:  time.Now().UTC(),
	}
	s.users[record.ID] = record
	cp := *record
	return &cp, nil
}

// GetUserByName fetches a user by name.
func (s *Store) GetUserByName(ctx context.Context, name string) (*job.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.users {
		if record.Name == name {
			cp := *record
			return &cp, nil
		}
	}
	return nil, nil
}

// Close is a no-op for the in-memory backend.
func (s *Store) Close() error { return nil }

func sortNewestFirst(records []*job.Job) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

var _ job.Store = (*Store)(nil)
