// Package ytdlp wraps the yt-dlp command line tool as the metadata and
// stream fetch collaborators.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"mixdown/internal/media"
	"mixdown/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI invokes yt-dlp for metadata probes and audio stream fetches.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Fetch probes a reference with --dump-json and returns its metadata.
func (c *CLI) Fetch(ctx context.Context, reference string) (media.Metadata, error) {
	if strings.TrimSpace(reference) == "" {
		return media.Metadata{}, services.Wrap(services.ErrValidation, "ytdlp", "fetch metadata", "reference required", nil)
	}

	args := []string{"--dump-json", "--no-download", "--no-warnings", reference}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return media.Metadata{}, services.Wrap(
			services.ErrSourceUnavailable,
			"ytdlp", "fetch metadata",
			strings.TrimSpace(stderr.String()),
			err,
		)
	}

	var payload struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		return media.Metadata{}, services.Wrap(services.ErrSourceUnavailable, "ytdlp", "parse metadata", "", err)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return media.Metadata{}, services.Wrap(services.ErrSourceUnavailable, "ytdlp", "fetch metadata", "no title in response", nil)
	}
	return media.Metadata{Title: payload.Title, DurationSeconds: payload.Duration}, nil
}

// Open launches yt-dlp streaming the best audio track to stdout. Closing the
// returned stream reaps the process.
func (c *CLI) Open(ctx context.Context, reference, quality string) (io.ReadCloser, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, services.Wrap(services.ErrValidation, "ytdlp", "open stream", "reference required", nil)
	}
	format := strings.TrimSpace(quality)
	if format == "" {
		format = "bestaudio"
	}

	args := []string{"-f", format, "--no-warnings", "-o", "-", reference}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "ytdlp", "open stream", "stdout pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "ytdlp", "open stream", "start yt-dlp", err)
	}

	return &processStream{reader: bufio.NewReader(stdout), cmd: cmd, stderr: &stderr}, nil
}

// processStream wraps a command's stdout and reaps the process on Close.
type processStream struct {
	reader io.Reader
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	closed bool
}

func (p *processStream) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if errors.Is(err, io.EOF) {
		if waitErr := p.wait(); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

func (p *processStream) Close() error {
	if p.cmd.Process != nil && !p.closed {
		_ = p.cmd.Process.Kill()
	}
	err := p.wait()
	if err != nil && strings.Contains(err.Error(), "killed") {
		return nil
	}
	return err
}

func (p *processStream) wait() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.cmd.Wait(); err != nil {
		detail := strings.TrimSpace(p.stderr.String())
		return services.Wrap(services.ErrSourceUnavailable, "ytdlp", "stream", detail, fmt.Errorf("yt-dlp: %w", err))
	}
	return nil
}

var (
	_ media.MetadataFetcher = (*CLI)(nil)
	_ media.StreamFetcher   = (*CLI)(nil)
)
