// Package ffmpeg wraps the ffmpeg command line tool as the transcode
// collaborator.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"mixdown/internal/media"
	"mixdown/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the CLI transcoder.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI invokes ffmpeg to convert an audio stream to the target format.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI transcoder using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode pipes in through ffmpeg into out. Progress key=value records are
// requested on stderr via -progress and translated into completion fractions
// using the duration hint. ffmpeg reports out_time_us per encoded chunk; the
// values are not guaranteed monotonic across stream corrections.
func (c *CLI) Transcode(ctx context.Context, in io.Reader, out io.Writer, opts media.TranscodeOptions, progress func(float64)) error {
	format := strings.TrimSpace(opts.Format)
	if format == "" {
		format = "mp3"
	}
	bitrate := opts.BitrateKbps
	if bitrate <= 0 {
		bitrate = 192
	}

	args := []string{
		"-hide_banner",
		"-nostats",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-b:a", fmt.Sprintf("%dk", bitrate),
		"-f", format,
		"-progress", "pipe:2",
		"pipe:1",
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Stdin = in
	cmd.Stdout = out
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrTranscode, "ffmpeg", "transcode", "stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrTranscode, "ffmpeg", "transcode", "start ffmpeg", err)
	}

	var lastError string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			// Non-progress stderr output is the error channel.
			lastError = line
			continue
		}
		if key != "out_time_us" && key != "out_time_ms" {
			continue
		}
		if progress == nil || opts.DurationHint <= 0 {
			continue
		}
		elapsedUs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || elapsedUs < 0 {
			continue
		}
		fraction := (float64(elapsedUs) / 1e6) / opts.DurationHint
		if fraction > 1 {
			fraction = 1
		}
		progress(fraction)
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return services.Wrap(services.ErrTranscode, "ffmpeg", "transcode", "read progress output", err)
	}

	if err := cmd.Wait(); err != nil {
		return services.Wrap(services.ErrTranscode, "ffmpeg", "transcode", lastError, err)
	}
	return nil
}

var _ media.Transcoder = (*CLI)(nil)
