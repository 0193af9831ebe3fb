// Package pipeline drives a single conversion job from submission through a
// terminal state. One Runner instance serves all jobs; each job runs in its
// own goroutine with no shared mutable state other than the job store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mixdown/internal/blob"
	"mixdown/internal/job"
	"mixdown/internal/logging"
	"mixdown/internal/media"
	"mixdown/internal/services"
	"mixdown/internal/textutil"
)

// Progress floors and ceiling for the conversion state machine. The band
// between the metadata floor and the transcode ceiling is reserved for
// transcode callbacks; the tail above 95 is reserved for finalization.
const (
	progressAccepted      = 5
	progressMetadata      = 15
	progressTranscodeCeil = 95
	progressDone          = 100
)

// Config carries the conversion settings a Runner applies to every job.
type Config struct {
	BitrateKbps int
	Format      string
	// Quality is the stream fetch quality hint.
	Quality string
	// FetchTimeout bounds the metadata probe.
	FetchTimeout time.Duration
}

// Runner executes the per-job conversion state machine.
type Runner struct {
	store      job.Store
	metadata   media.MetadataFetcher
	streams    media.StreamFetcher
	transcoder media.Transcoder
	blobs      blob.Store
	cfg        Config
	logger     *slog.Logger
}

// NewRunner constructs a Runner. A nil logger falls back to the no-op logger.
func NewRunner(
	store job.Store,
	metadata media.MetadataFetcher,
	streams media.StreamFetcher,
	transcoder media.Transcoder,
	blobs blob.Store,
	cfg Config,
	logger *slog.Logger,
) *Runner {
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.Quality == "" {
		cfg.Quality = "bestaudio"
	}
	return &Runner{
		store:      store,
		metadata:   metadata,
		streams:    streams,
		transcoder: transcoder,
		blobs:      blobs,
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "pipeline"),
	}
}

// Run drives one job to a terminal state. It never returns an error: every
// failure is persisted on the job record, and a record deleted mid-run makes
// the pipeline stop silently rather than resurrect it.
func (r *Runner) Run(ctx context.Context, jobID int64, sourceURL string) {
	logger := r.logger.With(logging.Int64(logging.FieldJobID, jobID))

	// Accepted, working.
	record, ok := r.update(ctx, logger, jobID, job.Patch{
		Status:   job.StatusOf(job.StatusProcessing),
		Progress: job.Int(progressAccepted),
	})
	if !ok {
		return
	}
	logger.Info("conversion started", logging.String("source_url", sourceURL))

	meta, err := r.fetchMetadata(ctx, sourceURL)
	if err != nil {
		r.fail(ctx, logger, jobID, err)
		return
	}
	title := textutil.SanitizeFileName(meta.Title)

	// Metadata acquired, transcoding not yet started.
	record, ok = r.update(ctx, logger, jobID, job.Patch{
		Title:    job.String(title),
		Progress: job.Int(progressMetadata),
	})
	if !ok {
		return
	}

	key := storageKey(jobID, r.cfg.Format)
	displayName := displayFileName(title, jobID, r.cfg.Format)

	size, err := r.transcode(ctx, logger, jobID, sourceURL, key, meta)
	if err != nil {
		if ctx.Err() == nil {
			r.fail(ctx, logger, jobID, err)
		}
		r.blobs.Remove(key)
		return
	}

	now := time.Now().UTC()
	record, ok = r.update(ctx, logger, jobID, job.Patch{
		Status:       job.StatusOf(job.StatusCompleted),
		Progress:     job.Int(progressDone),
		ArtifactKey:  job.String(key),
		ArtifactName: job.String(displayName),
		ArtifactSize: job.Int64(size),
		CompletedAt:  job.Time(now),
	})
	if !ok {
		// Deleted while transcoding; the record owns the artifact, so the
		// orphaned bytes go too.
		r.blobs.Remove(key)
		return
	}
	logger.Info("conversion completed",
		logging.String("artifact", record.ArtifactName),
		logging.Int64("bytes", record.ArtifactSize),
	)
}

func (r *Runner) fetchMetadata(ctx context.Context, sourceURL string) (media.Metadata, error) {
	fetchCtx := ctx
	if r.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()
	}
	return r.metadata.Fetch(fetchCtx, sourceURL)
}

// transcode streams the reference through the transcoder into the blob store
// and returns the artifact byte size. Progress callbacks are clamped into
// [progressMetadata, progressTranscodeCeil] and stored monotonically; when an
// update observes a vanished record the job context is cancelled so the
// external work winds down.
func (r *Runner) transcode(ctx context.Context, logger *slog.Logger, jobID int64, sourceURL, key string, meta media.Metadata) (int64, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := r.streams.Open(jobCtx, sourceURL, r.cfg.Quality)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	sink, err := r.blobs.Create(key)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "pipeline", "create artifact", key, err)
	}

	lastPercent := progressMetadata
	onProgress := func(fraction float64) {
		percent := clampTranscodePercent(fraction)
		if percent <= lastPercent {
			return
		}
		lastPercent = percent
		if _, ok := r.update(jobCtx, logger, jobID, job.Patch{Progress: job.Int(percent)}); !ok {
			cancel()
		}
	}

	opts := media.TranscodeOptions{
		BitrateKbps:  r.cfg.BitrateKbps,
		Format:       r.cfg.Format,
		DurationHint: meta.DurationSeconds,
	}
	transcodeErr := r.transcoder.Transcode(jobCtx, stream, sink, opts, onProgress)
	closeErr := sink.Close()
	if transcodeErr != nil {
		return 0, transcodeErr
	}
	if closeErr != nil {
		return 0, services.Wrap(services.ErrStorage, "pipeline", "finalize artifact", key, closeErr)
	}
	if jobCtx.Err() != nil {
		return 0, jobCtx.Err()
	}

	size, err := r.blobs.Size(key)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "pipeline", "measure artifact", key, err)
	}
	return size, nil
}

// update applies a patch and reports whether the pipeline should continue.
// A vanished record or a storage fault both stop the pipeline silently; only
// the fault is logged.
func (r *Runner) update(ctx context.Context, logger *slog.Logger, jobID int64, patch job.Patch) (*job.Job, bool) {
	record, err := r.store.Update(ctx, jobID, patch)
	if err != nil {
		logger.Error("job update failed; stopping pipeline", logging.Error(err))
		return nil, false
	}
	if record == nil {
		logger.Debug("job vanished; stopping pipeline")
		return nil, false
	}
	return record, true
}

// fail persists the terminal failure state. Progress is left frozen at its
// last observed value.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, jobID int64, cause error) {
	detail := services.FailureDetail(cause)
	logger.Warn("conversion failed", logging.Error(cause))
	_, _ = r.update(ctx, logger, jobID, job.Patch{
		Status:      job.StatusOf(job.StatusFailed),
		ErrorDetail: job.String(detail),
	})
}

func clampTranscodePercent(fraction float64) int {
	percent := progressMetadata + int(fraction*float64(progressTranscodeCeil-progressMetadata))
	if percent < progressMetadata {
		return progressMetadata
	}
	if percent > progressTranscodeCeil {
		return progressTranscodeCeil
	}
	return percent
}

// storageKey derives a collision-free blob key from the job identifier and a
// creation-time nonce.
func storageKey(jobID int64, format string) string {
	return fmt.Sprintf("job-%d-%s.%s", jobID, uuid.NewString(), format)
}

// displayFileName derives the human-facing filename from the sanitized title
// and identifier, falling back to a generic name for untitled sources.
func displayFileName(title string, jobID int64, format string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Sprintf("audio-%d.%s", jobID, format)
	}
	return fmt.Sprintf("%s-%d.%s", trimmed, jobID, format)
}
