package harrier

import "fmt"

// ErrPoolShutDown is returned by Submit once the pool has been shut down,
// and is the error every completion still outstanding at shutdown is
// resolved with. It is also returned as the Get error for any completion
// whose task never ran because the pool was torn down first.
var ErrPoolShutDown = &PoolError{msg: "pool is shut down"}

// ErrTimeout is returned by Completion.Get when the context passed to it
// is done before the task completes. (WaitFor reports its own timeout as
// StatusTimeout, not as an error.)
var ErrTimeout = &PoolError{msg: "operation timed out"}

// ErrNilTask is returned by Submit when given a nil callable.
var ErrNilTask = &PoolError{msg: "task is nil"}

// PoolError is the concrete type behind every sentinel error the pool
// returns directly (as opposed to TaskFailedError, which wraps a panic or
// error raised by the task itself).
type PoolError struct {
	msg string
}

func (e *PoolError) Error() string { return "harrier: " + e.msg }

// TaskFailedError wraps whatever a task panicked with or returned as its
// error, so a caller can recover the original failure via errors.As while
// still seeing a harrier-specific error type at the top level.
type TaskFailedError struct {
	Cause any
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("harrier: task failed: %v", e.Cause)
}

// Unwrap lets errors.Is/errors.As reach a task's own error, when the task
// failed by returning an error rather than panicking.
func (e *TaskFailedError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
