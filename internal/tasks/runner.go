// Package tasks runs detached background work with its own error boundary.
//
// A task started with Go outlives the request that created it: it runs on a
// context that keeps the caller's values but ignores its cancellation. The
// runner recovers panics, logs failures, and tracks in-flight tasks so
// shutdown can wait for them up to a deadline.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"claimcheck/internal/logging"
	"claimcheck/internal/services"
)

// ErrClosed is returned by Go after Close.
var ErrClosed = errors.New("task runner closed")

// Func is one unit of background work.
type Func func(ctx context.Context) error

// Stats reports runner counters.
type Stats struct {
	Active    int64 `json:"active"`
	Started   int64 `json:"started"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Runner starts and tracks background tasks.
type Runner struct {
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	active    atomic.Int64
	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewRunner constructs a Runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logging.NewComponentLogger(logger, "tasks")}
}

// Go starts fn in its own goroutine. The task context carries ctx's values
// but is never cancelled by the caller.
func (r *Runner) Go(ctx context.Context, name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("task %s: nil func", name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.started.Add(1)
	r.active.Add(1)
	taskCtx := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)
		r.run(taskCtx, name, fn)
	}()
	return nil
}

func (r *Runner) run(ctx context.Context, name string, fn Func) {
	logger := logging.WithContext(ctx, r.logger).With(logging.String("task", name))
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
				logger.Error("task panicked",
					logging.String(logging.FieldEventType, "task_panic"),
					logging.String("stack", string(debug.Stack())),
				)
			}
		}()
		return fn(ctx)
	}()

	if err != nil {
		r.failed.Add(1)
		logging.ErrorWithContext(logger, "background task failed", "task_failed",
			logging.Duration("duration", time.Since(start)),
			logging.String("failure_kind", services.FailureKind(err)),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.Error(err),
		)
		return
	}
	r.succeeded.Add(1)
	logger.Debug("background task finished",
		logging.String(logging.FieldEventType, "task_complete"),
		logging.Duration("duration", time.Since(start)),
	)
}

// Stats returns a snapshot of the runner counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Active:    r.active.Load(),
		Started:   r.started.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
	}
}

// Wait blocks until all tasks finish or ctx is done. It returns ctx.Err() when
// tasks were still running at the deadline.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits up to grace for in-flight work.
// Tasks still running at the deadline are abandoned.
func (r *Runner) Close(grace time.Duration) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		r.logger.Warn("abandoning background tasks at shutdown",
			logging.String(logging.FieldEventType, "task_abandoned"),
			logging.Int64("active", r.active.Load()),
			logging.String(logging.FieldErrorHint, "increase pipeline.shutdown_grace_seconds"),
			logging.String(logging.FieldImpact, "runs in progress will not be committed"),
		)
		return err
	}
	return nil
}
