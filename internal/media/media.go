// Package media defines the external collaborator contracts the conversion
// pipeline consumes: metadata probing, audio stream fetching, and
// transcoding. Implementations wrap the yt-dlp and ffmpeg binaries; tests
// substitute fakes.
package media

import (
	"context"
	"io"
)

// Metadata describes a remote media reference.
type Metadata struct {
	Title string
	// DurationSeconds is used to derive transcode progress fractions;
	// zero means unknown.
	DurationSeconds float64
}

// MetadataFetcher probes a reference for its metadata.
// Failures carry the services.ErrSourceUnavailable marker.
type MetadataFetcher interface {
	Fetch(ctx context.Context, reference string) (Metadata, error)
}

// StreamFetcher opens the raw audio stream for a reference. The quality hint
// is passed through to the underlying fetcher. Callers own closing the
// returned stream.
type StreamFetcher interface {
	Open(ctx context.Context, reference, quality string) (io.ReadCloser, error)
}

// TranscodeOptions configure a single transcode run.
type TranscodeOptions struct {
	BitrateKbps int
	Format      string
	// DurationHint lets the transcoder translate elapsed output time into a
	// completion fraction; zero disables progress reporting.
	DurationHint float64
}

// Transcoder converts an input audio stream into the target format, writing
// the result to out. The progress callback receives fractions in [0.0, 1.0];
// it may be invoked zero or more times and is not guaranteed monotonic.
// Failures carry the services.ErrTranscode marker.
type Transcoder interface {
	Transcode(ctx context.Context, in io.Reader, out io.Writer, opts TranscodeOptions, progress func(float64)) error
}
