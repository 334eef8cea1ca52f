package harrier

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// softCapDefault is the default per-queue soft cap: once a worker's
// local queue looks longer than this, Submit falls back to the global
// queue instead of piling more work on one worker.
const softCapDefault = 1024

// Config holds all tunables for a Pool. Zero-value fields are filled in
// with DefaultConfig()'s values by New, so a caller only needs to set
// the fields it cares to override.
type Config struct {
	// NumWorkers is the number of worker goroutines. Zero defaults to
	// runtime.GOMAXPROCS(0).
	NumWorkers int

	// QueueSoftCap is the per-queue length beyond which Submit prefers
	// the global queue over a specific worker's local queue.
	QueueSoftCap int

	// ShutdownDeadline bounds how long Shutdown's drain-then-join phases
	// wait before proceeding anyway. Zero is replaced by the default
	// (5s); there is no setting that disables the deadline.
	ShutdownDeadline time.Duration

	// SpinAttempts is the number of busy-yield attempts in the idle
	// back-off ladder before a worker moves to short sleeps.
	SpinAttempts int

	// ShortSleepAttempts is the attempt count at which the back-off
	// ladder moves from short (µs) sleeps to the longer (ms) sleep tier
	// and marks the worker idle.
	ShortSleepAttempts int

	// Logger receives diagnostic events. Nil means no logging
	// (zap.NewNop() is used internally).
	Logger *zap.Logger

	// MetricsRegisterer, if non-nil, receives the pool's prometheus
	// collectors. Nil means metrics are not registered at all.
	MetricsRegisterer prometheus.Registerer

	// PanicHandler, if set, is invoked with the recovered value whenever
	// a task panics, in addition to the panic being routed through that
	// task's completion as a TaskFailedError.
	PanicHandler func(recovered any)
}

// DefaultConfig returns a Config with the defaults New uses for any
// field left at its zero value.
func DefaultConfig() Config {
	return Config{
		NumWorkers:         runtime.GOMAXPROCS(0),
		QueueSoftCap:       softCapDefault,
		ShutdownDeadline:   5 * time.Second,
		SpinAttempts:       16,
		ShortSleepAttempts: 64,
	}
}

// Validate reports a non-nil error if the configuration cannot produce a
// working pool.
func (c *Config) Validate() error {
	if c.NumWorkers < 0 {
		return &PoolError{msg: "NumWorkers must be >= 0"}
	}
	if c.QueueSoftCap < 0 {
		return &PoolError{msg: "QueueSoftCap must be >= 0"}
	}
	if c.ShutdownDeadline < 0 {
		return &PoolError{msg: "ShutdownDeadline must be >= 0"}
	}
	if c.SpinAttempts < 0 {
		return &PoolError{msg: "SpinAttempts must be >= 0"}
	}
	if c.ShortSleepAttempts < c.SpinAttempts {
		return &PoolError{msg: "ShortSleepAttempts must be >= SpinAttempts"}
	}
	return nil
}

func mergeDefaults(c Config) Config {
	d := DefaultConfig()
	if c.NumWorkers == 0 {
		c.NumWorkers = d.NumWorkers
	}
	if c.QueueSoftCap == 0 {
		c.QueueSoftCap = d.QueueSoftCap
	}
	if c.ShutdownDeadline == 0 {
		c.ShutdownDeadline = d.ShutdownDeadline
	}
	if c.SpinAttempts == 0 {
		c.SpinAttempts = d.SpinAttempts
	}
	if c.ShortSleepAttempts == 0 {
		c.ShortSleepAttempts = d.ShortSleepAttempts
	}
	return c
}
