// Package harrier provides a lock-free, work-stealing thread pool for Go.
//
// The pool is built on top of harrier/queue, an unbounded MPMC lock-free
// FIFO with hazard-pointer reclamation. Each worker owns one such queue
// as its local deque; a shared global queue is the submit-side overflow
// and entry point. Submit distributes work round-robin with a bounded
// shortest-queue preference, falling back to the global queue when a
// worker looks overloaded. Idle workers steal from a uniformly random
// peer before parking.
//
// # Quick start
//
//	pool, err := harrier.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown()
//
//	c, err := harrier.Submit(pool, func() (int, error) {
//	    return 42, nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := c.Get(context.Background())
//
// # Shutdown
//
// Shutdown stops the pool from accepting new work, waits for already
// queued tasks to finish (bounded by Config.ShutdownDeadline), wakes any
// parked workers, and joins every worker goroutine. Completions still
// outstanding when Shutdown returns are resolved with ErrPoolShutDown so
// no caller blocks on Get forever.
//
// # Observability
//
// A *zap.Logger passed via WithLogger receives diagnostic events (worker
// start/stop, task panics, shutdown phase transitions and deadline
// overruns); nothing is logged by default. WithMetricsRegisterer wires
// prometheus counters and gauges mirroring Pool.Stats() for scraping.
// Both are optional and independent of each other.
package harrier
