// Package job defines the conversion job model, its status lifecycle, and
// the store contract shared by the in-memory and SQLite backends.
//
// A Job moves strictly forward through pending, processing, and exactly one
// of the terminal states completed or failed. The store is the only shared
// mutable state between pipeline goroutines and API readers; every operation
// is atomic, and Update applies a Patch so concurrent readers never observe
// a torn record.
package job
