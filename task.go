package harrier

import "github.com/google/uuid"

// Task is the single uniform element type harrier's queues store. A
// Pool never leaks a submitted callable's concrete result type into the
// queue element type — Submit erases it into run, and the typed
// Completion[T] wrapper recovers it on the caller's side.
type Task struct {
	id         uuid.UUID
	run        func() (any, error)
	completion *completion
}

// isSentinel reports whether this Task is the empty callable injected
// during shutdown purely to wake a parked worker so it re-checks the
// running flag.
func (t Task) isSentinel() bool { return t.run == nil }

// sentinelTask builds one shutdown wake-up poke.
func sentinelTask() Task { return Task{} }

func newTask(run func() (any, error)) Task {
	return Task{
		id:         uuid.New(),
		run:        run,
		completion: newCompletion(),
	}
}
