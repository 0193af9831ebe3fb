package ytdlp_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/media/ytdlp"
	"mixdown/internal/services"
)

func stubBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestFetchParsesMetadata(t *testing.T) {
	binary := stubBinary(t, `printf '{"title":"My Song","duration":212.5}\n'`)
	cli := ytdlp.NewCLI(ytdlp.WithBinary(binary))

	meta, err := cli.Fetch(context.Background(), "https://example.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if meta.Title != "My Song" || meta.DurationSeconds != 212.5 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestFetchFailureClassifiedAsSourceUnavailable(t *testing.T) {
	binary := stubBinary(t, `echo "ERROR: video unavailable" >&2; exit 1`)
	cli := ytdlp.NewCLI(ytdlp.WithBinary(binary))

	_, err := cli.Fetch(context.Background(), "https://example.com/gone")
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("error = %v, want source unavailable", err)
	}
}

func TestFetchRejectsEmptyReference(t *testing.T) {
	cli := ytdlp.NewCLI()
	_, err := cli.Fetch(context.Background(), "  ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestFetchMissingTitle(t *testing.T) {
	binary := stubBinary(t, `printf '{"duration":10}\n'`)
	cli := ytdlp.NewCLI(ytdlp.WithBinary(binary))

	_, err := cli.Fetch(context.Background(), "https://example.com/v")
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("error = %v, want source unavailable", err)
	}
}

func TestOpenStreamsStdout(t *testing.T) {
	binary := stubBinary(t, `printf 'audio-bytes'`)
	cli := ytdlp.NewCLI(ytdlp.WithBinary(binary))

	stream, err := cli.Open(context.Background(), "https://example.com/v", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(content) != "audio-bytes" {
		t.Fatalf("content = %q", content)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenPropagatesProcessFailure(t *testing.T) {
	binary := stubBinary(t, `echo "ERROR: forbidden" >&2; exit 1`)
	cli := ytdlp.NewCLI(ytdlp.WithBinary(binary))

	stream, err := cli.Open(context.Background(), "https://example.com/v", "bestaudio")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, readErr := io.ReadAll(stream)
	closeErr := stream.Close()
	if readErr == nil && closeErr == nil {
		t.Fatal("expected stream failure to surface")
	}
	for _, err := range []error{readErr, closeErr} {
		if err != nil && !errors.Is(err, services.ErrSourceUnavailable) {
			t.Fatalf("error = %v, want source unavailable", err)
		}
	}
}
