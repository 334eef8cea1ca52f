package harrier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// poolMetrics mirrors the same atomics Pool.Stats() reads, exposed as
// prometheus collectors for scraping. It is constructed only when the
// pool is built WithMetricsRegisterer; a pool with none set runs with
// metrics == nil and every call site nil-checks before touching it.
type poolMetrics struct {
	submitted  prometheus.Counter
	completed  prometheus.Counter
	failed     prometheus.Counter
	stolen     prometheus.Counter
	rejected   prometheus.Counter
	inFlight   prometheus.Gauge
	queueDepth *prometheus.GaugeVec
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)
	return &poolMetrics{
		submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "harrier_tasks_submitted_total",
			Help: "Total number of tasks submitted to the pool.",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Name: "harrier_tasks_completed_total",
			Help: "Total number of tasks that finished execution, successfully or not.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "harrier_tasks_failed_total",
			Help: "Total number of tasks that panicked or returned an error.",
		}),
		stolen: factory.NewCounter(prometheus.CounterOpts{
			Name: "harrier_tasks_stolen_total",
			Help: "Total number of tasks executed after being stolen from a peer worker.",
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "harrier_tasks_rejected_total",
			Help: "Total number of Submit calls rejected because the pool was shut down.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harrier_tasks_in_flight",
			Help: "Number of tasks queued or executing right now.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harrier_worker_queue_depth",
			Help: "Approximate queue depth per worker.",
		}, []string{"worker"}),
	}
}
