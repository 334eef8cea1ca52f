package harrier

// WorkerState is an enriched view of a worker's position in the
// own-queue -> global-queue -> steal -> idle loop, used purely for
// reporting via Stats — it has no effect on scheduling.
type WorkerState string

const (
	StateRunning  WorkerState = "RUNNING"
	StateStealing WorkerState = "STEALING"
	StateIdle     WorkerState = "IDLE"
	StateParked   WorkerState = "PARKED"
	StateShutdown WorkerState = "SHUTDOWN"
)

// WorkerStats reports one worker's lifetime counters and current state.
type WorkerStats struct {
	WorkerID      int
	TasksExecuted uint64
	TasksFailed   uint64
	TasksStolen   uint64
	QueueDepth    int
	State         WorkerState
}

// Stats is a point-in-time snapshot of pool-wide counters, read without
// locks. Values may be slightly inconsistent relative to each other
// under concurrent load, but each individual counter is itself
// consistent (loaded atomically).
type Stats struct {
	Submitted       uint64
	Completed       uint64
	Failed          uint64
	Stolen          uint64
	Rejected        uint64
	InFlight        int64
	NumWorkers      int
	TotalQueueDepth int
	GlobalQueueSize int
	WorkerStats     []WorkerStats
}
