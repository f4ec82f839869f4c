// Package asyncpatch runs a differ or patcher loop as a single background
// task, so a front end (e.g. a GUI shell) can keep its event loop
// responsive. The run is fire-and-forget: it is cancellable only as a
// whole, never split across goroutines per frame.
package asyncpatch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one running background patch operation.
type Task struct {
	eg     *errgroup.Group
	cancel context.CancelFunc
}

// Start launches run on its own goroutine. Cancellation through Cancel
// (or the parent ctx) is cooperative: the engines check their context
// between frames, so the task stops at the next frame boundary.
func Start(ctx context.Context, run func(context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return run(ctx) })
	return &Task{eg: eg, cancel: cancel}
}

// Cancel requests termination. Wait reports the run's outcome.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the run finishes and returns its error, releasing
// the task's resources.
func (t *Task) Wait() error {
	err := t.eg.Wait()
	t.cancel()
	return err
}
