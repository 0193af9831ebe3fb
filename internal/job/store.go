package job

import "context"

// Store is the contract both backends satisfy. All operations are atomic
// with respect to each other; a concurrent Update and Get never observe a
// torn record.
//
// Lookup misses are represented as (nil, nil) rather than errors so pipeline
// callers can distinguish "job vanished, stop processing" from a storage
// fault.
type Store interface {
	// Create inserts a new job for the source reference in the pending
	// status with zero progress and returns the full record.
	Create(ctx context.Context, sourceURL string) (*Job, error)

	// Get fetches a job by identifier, returning nil when absent.
	Get(ctx context.Context, id int64) (*Job, error)

	// List returns all jobs ordered by creation time, most recent first.
	List(ctx context.Context) ([]*Job, error)

	// ListByStatus returns jobs matching any of the statuses, most recent
	// first. No statuses behaves like List.
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Job, error)

	// Update merges the supplied patch into an existing record and returns
	// the updated record, or nil when no such job exists.
	Update(ctx context.Context, id int64, patch Patch) (*Job, error)

	// Delete removes a job record, reporting whether one existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// Stats returns a count of jobs grouped by status.
	Stats(ctx context.Context) (map[Status]int, error)

	// CreateUser inserts a user with a unique name.
	CreateUser(ctx context.Context, name, credential string) (*User, error)

	// GetUserByName fetches a user by name, returning nil when absent.
	GetUserByName(ctx context.Context, name string) (*User, error)

	// Close releases backend resources.
	Close() error
}
