package harrier

import (
	"context"
	"sync"
)

// completion is the untyped, single-producer/single-consumer one-shot
// handoff backing every Completion[T]. A task's worker is the sole
// writer (via resolve); the submitter is the sole reader. sync.Once
// guards resolve so a task that somehow completes twice (it shouldn't,
// but an internal bug should not turn into a panic here) is harmless.
type completion struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

func (c *completion) resolve(value any, err error) {
	c.once.Do(func() {
		c.value, c.err = value, err
		close(c.done)
	})
}

func (c *completion) isReady() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *completion) get(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// Completion is the typed handle a caller receives from Submit. It is a
// single-producer/single-consumer one-shot: the task's completion is
// written once by the worker that ran it and may be read any number of
// times afterward by any goroutine holding the handle.
type Completion[T any] struct {
	inner *completion
}

// Get blocks until the task completes, returning its result, or returns
// early with ErrTimeout if ctx is done first. A task that panicked or
// returned a non-nil error surfaces that failure wrapped in
// TaskFailedError; a pool torn down before the task ran resolves it with
// ErrPoolShutDown instead.
func (c *Completion[T]) Get(ctx context.Context) (T, error) {
	v, err := c.inner.get(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	// v is nil exactly when T's zero value is the correct result (e.g. a
	// task whose T is a pointer or interface type that returned nil).
	if v == nil {
		var zero T
		return zero, nil
	}
	return v.(T), nil
}

// IsReady reports, without blocking, whether the task has completed.
func (c *Completion[T]) IsReady() bool {
	return c.inner.isReady()
}
