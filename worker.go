package harrier

import (
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/harrier-dev/harrier/queue"
)

// Worker is one scheduler participant: a goroutine that drains its own
// local queue, then the pool's global queue, then attempts to steal from
// a random peer, before idling per the back-off ladder.
type Worker struct {
	id    int
	local *queue.Queue[Task]

	tasksExecuted atomic.Uint64
	tasksFailed   atomic.Uint64
	tasksStolen   atomic.Uint64

	idle     atomic.Bool
	stealing atomic.Bool
	parked   atomic.Bool
	stopped  atomic.Bool

	// done closes once run returns, letting Shutdown join this specific
	// worker without polling.
	done chan struct{}

	rng *rand.Rand
}

func newWorker(id int) *Worker {
	return &Worker{
		id:    id,
		local: queue.New[Task](),
		done:  make(chan struct{}),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*104729)),
	}
}

func (w *Worker) queueDepth() int { return w.local.Size() }

func (w *Worker) state() WorkerState {
	switch {
	case w.stopped.Load():
		return StateShutdown
	case w.stealing.Load():
		return StateStealing
	case w.parked.Load():
		return StateParked
	case w.idle.Load():
		return StateIdle
	default:
		return StateRunning
	}
}

// run is the worker's main loop. It returns once the pool is no longer
// running and either every queue — this worker's, the global queue, and
// every peer's — looks empty, or the worker pops a shutdown sentinel
// task (which ends the loop without re-checking the queues).
func (w *Worker) run(p *Pool) {
	defer close(w.done)

	if p.logger != nil {
		p.logger.Debug("worker started", zap.Int("worker", w.id))
	}

	attempts := 0
	for {
		task, ok := w.findTask(p)
		if ok {
			if task.isSentinel() {
				if !p.running.Load() {
					break
				}
				continue
			}
			attempts = 0
			w.idle.Store(false)
			p.execute(w, task)
			continue
		}

		if !p.running.Load() && w.allQueuesEmpty(p) {
			break
		}

		attempts++
		w.backoff(p, attempts)
	}

	w.parked.Store(false)
	w.stealing.Store(false)
	w.idle.Store(false)
	w.stopped.Store(true)

	if p.logger != nil {
		p.logger.Debug("worker stopped", zap.Int("worker", w.id))
	}
}

// findTask tries, in priority order, this worker's own local queue,
// then the pool's global queue, then a steal attempt against a peer.
func (w *Worker) findTask(p *Pool) (Task, bool) {
	if t, ok := w.local.TryPop(); ok {
		return t, true
	}
	if t, ok := p.global.TryPop(); ok {
		return t, true
	}
	return w.trySteal(p)
}

// allQueuesEmpty checks this worker's own queue, the pool's global
// queue, and every peer's local queue — the precondition for a worker to
// exit its loop once running is false.
func (w *Worker) allQueuesEmpty(p *Pool) bool {
	if !w.local.IsEmpty() || !p.global.IsEmpty() {
		return false
	}
	for _, peer := range p.workers {
		if peer.id != w.id && !peer.local.IsEmpty() {
			return false
		}
	}
	return true
}

// trySteal makes one steal attempt against a uniformly random peer per
// outer-loop iteration. Stealing is a no-op (not an error) on a
// single-worker pool.
func (w *Worker) trySteal(p *Pool) (Task, bool) {
	n := len(p.workers)
	if n <= 1 {
		return Task{}, false
	}

	w.stealing.Store(true)
	defer w.stealing.Store(false)

	victimID := w.rng.Intn(n - 1)
	if victimID >= w.id {
		victimID++
	}

	victim := p.workers[victimID]
	task, ok := victim.local.TryPop()
	if !ok {
		return Task{}, false
	}

	w.tasksStolen.Add(1)
	if p.metrics != nil {
		p.metrics.stolen.Inc()
	}
	return task, true
}

// backoff implements the worker's idle ladder:
//
//	1-16 (SpinAttempts default)        busy yield
//	17-64 (ShortSleepAttempts default) short (microsecond) sleep
//	>= 65                              longer (millisecond) sleep, idle=true
func (w *Worker) backoff(p *Pool, attempts int) {
	switch {
	case attempts <= p.config.SpinAttempts:
		runtime.Gosched()
	case attempts <= p.config.ShortSleepAttempts:
		w.parked.Store(false)
		time.Sleep(50 * time.Microsecond)
	default:
		w.idle.Store(true)
		w.parked.Store(true)
		time.Sleep(2 * time.Millisecond)
		w.parked.Store(false)
	}
}
