package harrier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Pool at construction via the functional-options
// pattern: each Option mutates a Config in place before defaults are
// merged in.
type Option func(*Config)

// WithNumWorkers sets the number of worker goroutines. Values <= 0 are
// ignored, leaving the default (runtime.GOMAXPROCS(0)) in place.
func WithNumWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.NumWorkers = n
		}
	}
}

// WithQueueSoftCap sets the per-worker queue length above which Submit
// prefers the global queue.
func WithQueueSoftCap(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueSoftCap = n
		}
	}
}

// WithShutdownDeadline bounds how long Shutdown waits during its drain
// and join phases before proceeding anyway.
func WithShutdownDeadline(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ShutdownDeadline = d
		}
	}
}

// WithBackoffLadder overrides the idle back-off ladder's spin and
// short-sleep attempt counts.
func WithBackoffLadder(spinAttempts, shortSleepAttempts int) Option {
	return func(c *Config) {
		if spinAttempts > 0 {
			c.SpinAttempts = spinAttempts
		}
		if shortSleepAttempts > 0 {
			c.ShortSleepAttempts = shortSleepAttempts
		}
	}
}

// WithLogger sets the zap.Logger diagnostic events are written to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithMetricsRegisterer registers the pool's prometheus collectors
// against reg. Pools built without this option register no metrics.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) { c.MetricsRegisterer = reg }
}

// WithPanicHandler sets a callback invoked with the recovered value
// whenever a submitted task panics.
func WithPanicHandler(handler func(recovered any)) Option {
	return func(c *Config) { c.PanicHandler = handler }
}
