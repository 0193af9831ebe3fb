package pipeline

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"mixdown/internal/logging"
)

// Launcher runs pipeline instances as fire-and-forget goroutines. Submission
// never blocks on pipeline completion; an optional bound limits how many
// pipelines execute at once. Panics escaping a pipeline are recovered and
// logged, never dropped.
type Launcher struct {
	logger *slog.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
}

// NewLauncher constructs a Launcher. maxActive bounds concurrent pipelines;
// zero means unlimited.
func NewLauncher(logger *slog.Logger, maxActive int) *Launcher {
	var sem chan struct{}
	if maxActive > 0 {
		sem = make(chan struct{}, maxActive)
	}
	return &Launcher{
		logger: logging.WithComponent(logger, "launcher"),
		sem:    sem,
	}
}

// Launch schedules fn to run asynchronously for the given job.
func (l *Launcher) Launch(ctx context.Context, jobID int64, fn func(context.Context)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				l.logger.Error("pipeline panic",
					logging.Int64(logging.FieldJobID, jobID),
					logging.Any("panic", rec),
					logging.String("stack", string(debug.Stack())),
				)
			}
		}()

		if l.sem != nil {
			select {
			case l.sem <- struct{}{}:
				defer func() { <-l.sem }()
			case <-ctx.Done():
				return
			}
		}
		fn(ctx)
	}()
}

// Wait blocks until every launched pipeline has returned.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
