// Package daemon wires the job store, the conversion pipeline, and the HTTP
// API into a single long-running process with single-instance enforcement.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mixdown/internal/archive"
	"mixdown/internal/artifacts"
	"mixdown/internal/blob"
	"mixdown/internal/config"
	"mixdown/internal/deps"
	"mixdown/internal/job"
	"mixdown/internal/job/memstore"
	"mixdown/internal/job/sqlitestore"
	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/media/ytdlp"
	"mixdown/internal/pipeline"
	"mixdown/internal/submit"
)

// Daemon coordinates the background conversion services and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store       job.Store
	blobs       blob.Store
	launcher    *pipeline.Launcher
	coordinator *submit.Coordinator
	assembler   *archive.Assembler
	artifacts   *artifacts.Manager

	api *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StoreBackend string
	ArtifactDir  string
	LockFilePath string
	JobCounts    map[job.Status]int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. The store backend is
// selected by configuration: the in-memory store for throwaway runs, SQLite
// for durable ones.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.NewFSStore(cfg.Paths.ArtifactDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	fetcher := ytdlp.NewCLI(ytdlp.WithBinary(cfg.Convert.YtdlpBinary))
	runner := pipeline.NewRunner(
		store,
		fetcher,
		fetcher,
		ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Convert.FFmpegBinary)),
		blobs,
		pipeline.Config{
			BitrateKbps:  cfg.Convert.BitrateKbps,
			Format:       cfg.Convert.Format,
			FetchTimeout: cfg.FetchTimeout(),
		},
		logger,
	)
	launcher := pipeline.NewLauncher(logger, cfg.Workflow.MaxActiveJobs)

	d := &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		blobs:       blobs,
		launcher:    launcher,
		coordinator: submit.NewCoordinator(store, launcher, runner, cfg.Convert.AllowedHosts, logger),
		assembler:   archive.NewAssembler(store, blobs, logger),
		artifacts:   artifacts.NewManager(store, blobs, logger),
		lockPath:    filepath.Join(cfg.Paths.LogDir, "mixdownd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

func openStore(cfg *config.Config) (job.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return memstore.New(), nil
	case config.StoreBackendSQLite:
		store, err := sqlitestore.Open(cfg.Paths.StagingDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Start acquires the daemon lock and brings up the API server. Submitted
// pipelines run until Stop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mixdown daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("mixdown daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server, waits for in-flight pipelines to reach a
// terminal state, and releases the daemon lock. Pipelines are never cancelled
// mid-run, so shutdown blocks until the active conversions finish.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.launcher.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mixdown daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Coordinator exposes the submission front door.
func (d *Daemon) Coordinator() *submit.Coordinator { return d.coordinator }

// Assembler exposes the archive bundler.
func (d *Daemon) Assembler() *archive.Assembler { return d.assembler }

// Artifacts exposes artifact retrieval and deletion.
func (d *Daemon) Artifacts() *artifacts.Manager { return d.artifacts }

// Store exposes the job store for read paths.
func (d *Daemon) Store() job.Store { return d.store }

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("job stats unavailable", logging.Error(err))
		counts = nil
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreBackend: d.cfg.Store.Backend,
		ArtifactDir:  d.cfg.Paths.ArtifactDir,
		LockFilePath: d.lockPath,
		JobCounts:    counts,
		Dependencies: deps.CheckBinaries(deps.For(d.cfg)),
	}
}
