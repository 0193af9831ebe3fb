// Package archive assembles bundles of completed artifacts into a single
// streamed ZIP container.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mixdown/internal/blob"
	"mixdown/internal/job"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Assembler builds ZIP bundles from completed job artifacts.
type Assembler struct {
	store  job.Store
	blobs  blob.Store
	logger *slog.Logger
}

// NewAssembler constructs an Assembler.
func NewAssembler(store job.Store, blobs blob.Store, logger *slog.Logger) *Assembler {
	return &Assembler{
		store:  store,
		blobs:  blobs,
		logger: logging.WithComponent(logger, "archive"),
	}
}

// entry is a job that survived filtering and will be written to the archive.
type entry struct {
	jobID int64
	key   string
	name  string
}

// WriteBundle streams a ZIP archive of the artifacts for the requested job
// identifiers to w. Jobs that are missing, not completed, or whose artifact
// bytes have vanished are skipped without failing the bundle; entries appear
// in request order. When no requested job contributes an artifact the bundle
// is not started and ErrNotFound is returned, so callers can still send an
// error response. Duplicate identifiers contribute a single entry.
func (a *Assembler) WriteBundle(ctx context.Context, w io.Writer, jobIDs []int64) error {
	if len(jobIDs) == 0 {
		return services.Wrap(services.ErrValidation, "archive", "bundle", "no job ids requested", nil)
	}

	entries := make([]entry, 0, len(jobIDs))
	seen := make(map[int64]struct{}, len(jobIDs))
	used := make(map[string]int)
	for _, id := range jobIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		record, err := a.store.Get(ctx, id)
		if err != nil {
			return services.Wrap(services.ErrStorage, "archive", "bundle", fmt.Sprintf("load job %d", id), err)
		}
		if record == nil || record.Status != job.StatusCompleted || !record.HasArtifact() {
			continue
		}
		if !a.blobs.Exists(record.ArtifactKey) {
			a.logger.Warn("artifact bytes missing; skipping bundle entry",
				logging.Int64(logging.FieldJobID, id),
				logging.String("artifact", record.ArtifactKey),
			)
			continue
		}
		entries = append(entries, entry{
			jobID: id,
			key:   record.ArtifactKey,
			name:  uniqueEntryName(record.ArtifactName, id, used),
		})
	}
	if len(entries) == 0 {
		return services.Wrap(services.ErrNotFound, "archive", "bundle", "no completed artifacts among requested jobs", nil)
	}

	zw := zip.NewWriter(w)
	written := 0
	for _, ent := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}
		ok, err := a.writeEntry(zw, ent)
		if err != nil {
			_ = zw.Close()
			return err
		}
		if ok {
			written++
		}
	}
	if err := zw.Close(); err != nil {
		return services.Wrap(services.ErrStorage, "archive", "bundle", "finalize archive", err)
	}
	a.logger.Info("bundle written",
		logging.Int("requested", len(jobIDs)),
		logging.Int("entries", written),
	)
	return nil
}

// writeEntry copies one artifact into the archive. An artifact that vanished
// between filtering and streaming is skipped, matching the filter semantics.
func (a *Assembler) writeEntry(zw *zip.Writer, ent entry) (bool, error) {
	reader, err := a.blobs.Open(ent.key)
	if err != nil {
		a.logger.Warn("artifact vanished mid-bundle; skipping",
			logging.Int64(logging.FieldJobID, ent.jobID),
			logging.String("artifact", ent.key),
		)
		return false, nil
	}
	defer reader.Close()

	sink, err := zw.Create(ent.name)
	if err != nil {
		return false, services.Wrap(services.ErrStorage, "archive", "bundle", ent.name, err)
	}
	if _, err := io.Copy(sink, reader); err != nil {
		return false, services.Wrap(services.ErrStorage, "archive", "bundle", ent.name, err)
	}
	return true, nil
}

// uniqueEntryName keeps archive member names distinct when two jobs share a
// display name.
func uniqueEntryName(name string, jobID int64, used map[string]int) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = fmt.Sprintf("audio-%d.mp3", jobID)
	}
	used[trimmed]++
	if used[trimmed] == 1 {
		return trimmed
	}
	ext := ""
	base := trimmed
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		base, ext = trimmed[:idx], trimmed[idx:]
	}
	return fmt.Sprintf("%s (%d)%s", base, used[trimmed]-1, ext)
}
