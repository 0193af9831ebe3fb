// Package blob abstracts the artifact byte storage substrate. Keys are
// partitioned by construction (each job's storage key is unique), so no
// locking is required beyond what the substrate provides.
package blob

import "io"

// Store is the contract for artifact byte storage.
type Store interface {
	// Create opens a byte sink for the key, truncating any previous content.
	Create(key string) (io.WriteCloser, error)

	// Open returns a reader over the key's current bytes.
	Open(key string) (io.ReadCloser, error)

	// Size reports the stored byte count for the key.
	Size(key string) (int64, error)

	// Exists reports whether the key has backing bytes.
	Exists(key string) bool

	// Remove deletes the key's backing bytes, reporting whether any existed.
	// Removal is best effort; a missing key is not an error.
	Remove(key string) bool
}
