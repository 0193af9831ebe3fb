// Package artifacts handles single-artifact retrieval and the coupled
// deletion of a job record and its stored bytes.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"mixdown/internal/blob"
	"mixdown/internal/job"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Artifact describes a downloadable completed conversion.
type Artifact struct {
	Reader io.ReadCloser
	Name   string
	Size   int64
}

// Manager resolves and deletes artifacts. Deleting is idempotent and always
// removes bytes before the record, so a surviving record never points at
// bytes that were reaped out from under it by a concurrent delete.
type Manager struct {
	store  job.Store
	blobs  blob.Store
	logger *slog.Logger
}

// NewManager constructs a Manager.
func NewManager(store job.Store, blobs blob.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		blobs:  blobs,
		logger: logging.WithComponent(logger, "artifacts"),
	}
}

// Resolve opens the artifact for a completed job. It returns ErrNotFound when
// the job is missing, not completed, has no artifact, or the bytes vanished.
// The caller owns the reader.
func (m *Manager) Resolve(ctx context.Context, jobID int64) (*Artifact, error) {
	record, err := m.store.Get(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "artifacts", "resolve", fmt.Sprintf("load job %d", jobID), err)
	}
	if record == nil {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "resolve", fmt.Sprintf("job %d", jobID), nil)
	}
	if record.Status != job.StatusCompleted || !record.HasArtifact() {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "resolve",
			fmt.Sprintf("job %d has no completed artifact", jobID), nil)
	}

	reader, err := m.blobs.Open(record.ArtifactKey)
	if err != nil {
		m.logger.Warn("artifact bytes missing",
			logging.Int64(logging.FieldJobID, jobID),
			logging.String("artifact", record.ArtifactKey),
		)
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "resolve", record.ArtifactKey, nil)
	}
	return &Artifact{
		Reader: reader,
		Name:   record.ArtifactName,
		Size:   record.ArtifactSize,
	}, nil
}

// Delete removes a job record together with its stored bytes. It reports
// whether a record existed; deleting an unknown identifier is not an error.
// Byte removal is best effort and never blocks record deletion.
func (m *Manager) Delete(ctx context.Context, jobID int64) (bool, error) {
	record, err := m.store.Get(ctx, jobID)
	if err != nil {
		return false, services.Wrap(services.ErrStorage, "artifacts", "delete", fmt.Sprintf("load job %d", jobID), err)
	}
	if record == nil {
		return false, nil
	}
	if record.ArtifactKey != "" {
		if removed := m.blobs.Remove(record.ArtifactKey); !removed {
			m.logger.Debug("artifact bytes already gone",
				logging.Int64(logging.FieldJobID, jobID),
				logging.String("artifact", record.ArtifactKey),
			)
		}
	}

	existed, err := m.store.Delete(ctx, jobID)
	if err != nil {
		return false, services.Wrap(services.ErrStorage, "artifacts", "delete", fmt.Sprintf("job %d", jobID), err)
	}
	if existed {
		m.logger.Info("job deleted", logging.Int64(logging.FieldJobID, jobID))
	}
	return existed, nil
}
