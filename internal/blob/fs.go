package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore stores artifact bytes as flat files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory %q: %w", trimmed, err)
	}
	return &FSStore{root: trimmed}, nil
}

// Root returns the backing directory.
func (s *FSStore) Root() string { return s.root }

// Create opens a byte sink for the key.
func (s *FSStore) Create(key string) (io.WriteCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create artifact %q: %w", key, err)
	}
	return file, nil
}

// Open returns a reader over the key's current bytes.
func (s *FSStore) Open(key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact %q: %w", key, err)
	}
	return file, nil
}

// Size reports the stored byte count for the key.
func (s *FSStore) Size(key string) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat artifact %q: %w", key, err)
	}
	return info.Size(), nil
}

// Exists reports whether the key has backing bytes.
func (s *FSStore) Exists(key string) bool {
	path, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Remove deletes the key's backing bytes, reporting whether any existed.
func (s *FSStore) Remove(key string) bool {
	path, err := s.resolve(key)
	if err != nil {
		return false
	}
	if err := os.Remove(path); err != nil {
		return false
	}
	return true
}

// resolve maps a key to a path inside the root, rejecting traversal.
func (s *FSStore) resolve(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("artifact key is required")
	}
	if trimmed != filepath.Base(trimmed) {
		return "", fmt.Errorf("artifact key %q must not contain path separators", key)
	}
	return filepath.Join(s.root, trimmed), nil
}

var _ Store = (*FSStore)(nil)
