// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig produces a config rooted in a unique temp directory per test,
// bound to an ephemeral API port, then applies any options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// WithSQLiteBackend switches the test config to the durable store backend.
func WithSQLiteBackend() ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Store.Backend = config.StoreBackendSQLite
	}
}

// WithStubbedBinaries puts always-succeeding stand-ins for the named external
// binaries on PATH for the duration of the test. Defaults to yt-dlp and
// ffmpeg.
func WithStubbedBinaries(names ...string) ConfigOption {
	if len(names) == 0 {
		names = []string{"yt-dlp", "ffmpeg"}
	}
	return func(t testing.TB, _ *config.Config) {
		prependPath(t, StubBinaries(t, names...))
	}
}

// StubBinaries writes `exit 0` shell stubs for each name into a fresh temp
// directory and returns that directory.
func StubBinaries(t testing.TB, names ...string) string {
	t.Helper()
	binDir := t.TempDir()
	for _, name := range names {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return binDir
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() { _ = os.Setenv("PATH", oldPath) })
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
