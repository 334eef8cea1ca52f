package harrier

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harrier-dev/harrier/queue"
)

// Pool is a fixed-size work-stealing thread pool. Each worker owns one
// harrier/queue.Queue[Task] as its local deque; Pool.global is the
// shared overflow queue submissions fall back to once a worker's local
// queue looks full.
type Pool struct {
	config  Config
	workers []*Worker
	global  *queue.Queue[Task]

	running     atomic.Bool
	activeTasks atomic.Int64
	cursor      atomic.Uint64

	submittedTotal atomic.Uint64
	completedTotal atomic.Uint64
	rejectedTotal  atomic.Uint64

	logger  *zap.Logger
	metrics *poolMetrics

	shutdownOnce sync.Once
	shutdownDone chan struct{}
}

// Status is the outcome of a bounded wait.
type Status int

const (
	StatusOK Status = iota
	StatusTimeout
)

func (s Status) String() string {
	if s == StatusTimeout {
		return "Timeout"
	}
	return "OK"
}

// New builds and starts a Pool. Workers are spawned before New returns;
// the pool is immediately ready to accept Submit calls.
func New(opts ...Option) (*Pool, error) {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = mergeDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		config:       cfg,
		global:       queue.New[Task](),
		logger:       resolveLogger(cfg),
		metrics:      newPoolMetrics(cfg.MetricsRegisterer),
		shutdownDone: make(chan struct{}),
	}
	p.running.Store(true)

	p.workers = make([]*Worker, cfg.NumWorkers)
	for i := range p.workers {
		p.workers[i] = newWorker(i)
	}

	for _, w := range p.workers {
		go w.run(p)
	}

	return p, nil
}

// Submit wraps fn as a Task and hands it to the pool, returning a
// Completion[T] the caller can block on. Submit is a free function, not
// a method, because Go methods cannot introduce their own type
// parameters — Pool itself stays non-generic, storing only the
// type-erased Task and handing back a typed Completion[T] per call.
func Submit[T any](p *Pool, fn func() (T, error)) (*Completion[T], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	t := newTask(func() (any, error) { return fn() })
	comp, err := p.submitTask(t)
	if err != nil {
		return nil, err
	}
	return &Completion[T]{inner: comp}, nil
}

// SubmitFunc submits a fire-and-forget task with no result. Its
// Completion resolves to struct{} once the task returns, or to whatever
// error it raised.
func SubmitFunc(p *Pool, fn func()) (*Completion[struct{}], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	t := newTask(func() (any, error) {
		fn()
		return struct{}{}, nil
	})
	comp, err := p.submitTask(t)
	if err != nil {
		return nil, err
	}
	return &Completion[struct{}]{inner: comp}, nil
}

// submitTask rejects outright if the pool isn't running, otherwise
// credits activeTasks *before* the task becomes visible to any worker,
// then dispatches it.
func (p *Pool) submitTask(t Task) (*completion, error) {
	if !p.running.Load() {
		p.rejectedTotal.Add(1)
		if p.metrics != nil {
			p.metrics.rejected.Inc()
		}
		return nil, ErrPoolShutDown
	}

	p.activeTasks.Add(1)

	// Shutdown may have started between the check above and this
	// increment; re-check so a task can never be left queued after
	// Shutdown has already swept the queues for cancellation.
	if !p.running.Load() {
		p.activeTasks.Add(-1)
		p.rejectedTotal.Add(1)
		if p.metrics != nil {
			p.metrics.rejected.Inc()
		}
		t.completion.resolve(nil, ErrPoolShutDown)
		return nil, ErrPoolShutDown
	}

	p.submittedTotal.Add(1)
	if p.metrics != nil {
		p.metrics.submitted.Inc()
		p.metrics.inFlight.Inc()
	}

	p.dispatch(t)
	return t.completion, nil
}

// dispatch chooses a target queue: a bounded scan starting from the
// round-robin cursor, preferring whichever of a small window of workers
// has the shortest local queue, falling back to the global queue once
// even the best candidate looks overloaded.
func (p *Pool) dispatch(t Task) {
	n := len(p.workers)
	start := int(p.cursor.Add(1) % uint64(n))

	const scanWindow = 4
	bestIdx := start
	bestDepth := p.workers[start].queueDepth()

	for i := 1; i < scanWindow && i < n; i++ {
		idx := (start + i) % n
		if d := p.workers[idx].queueDepth(); d < bestDepth {
			bestDepth = d
			bestIdx = idx
		}
	}

	if bestDepth > p.config.QueueSoftCap {
		p.global.Push(t)
		return
	}
	p.workers[bestIdx].local.Push(t)
}

// execute runs one task with panic recovery, resolves its completion,
// and settles the pool-wide and per-worker bookkeeping. A panicking
// task never takes its worker down with it.
func (p *Pool) execute(w *Worker, t Task) {
	defer func() {
		if r := recover(); r != nil {
			w.tasksFailed.Add(1)
			if p.metrics != nil {
				p.metrics.failed.Inc()
			}
			if p.logger != nil {
				p.logger.Warn("task panicked",
					zap.Int("worker", w.id),
					zap.String("task", t.id.String()),
					zap.Any("panic", r),
				)
			}
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(r)
			}
			t.completion.resolve(nil, &TaskFailedError{Cause: r})
		}

		w.tasksExecuted.Add(1)
		p.completedTotal.Add(1)
		p.activeTasks.Add(-1)
		if p.metrics != nil {
			p.metrics.completed.Inc()
			p.metrics.inFlight.Dec()
			p.metrics.queueDepth.WithLabelValues(fmt.Sprint(w.id)).Set(float64(w.queueDepth()))
		}
	}()

	v, err := t.run()
	if err != nil {
		w.tasksFailed.Add(1)
		if p.metrics != nil {
			p.metrics.failed.Inc()
		}
		t.completion.resolve(nil, &TaskFailedError{Cause: err})
		return
	}
	t.completion.resolve(v, nil)
}

// quiescent reports whether the pool has no outstanding tasks and every
// queue — global and every worker's local queue — is empty.
func (p *Pool) quiescent() bool {
	if p.activeTasks.Load() != 0 {
		return false
	}
	if !p.global.IsEmpty() {
		return false
	}
	for _, w := range p.workers {
		if !w.local.IsEmpty() {
			return false
		}
	}
	return true
}

// Wait blocks until the pool reaches quiescence. It does not stop new
// submissions from extending the wait — concurrent Submit calls are
// simply folded into the set Wait is waiting on.
func (p *Pool) Wait() {
	p.pollUntil(nil)
}

// WaitFor behaves like Wait but gives up after deadline, returning
// StatusTimeout without affecting the pool's running state.
func (p *Pool) WaitFor(deadline time.Duration) Status {
	timeout := time.After(deadline)
	return p.pollUntil(timeout)
}

// pollUntil implements a bounded-polling wait in place of a condition
// variable: a short busy/yield phase, then a ticking sleep, checked
// against an optional timeout channel.
func (p *Pool) pollUntil(timeout <-chan time.Time) Status {
	for i := 0; i < 100; i++ {
		if p.quiescent() {
			return StatusOK
		}
		runtime.Gosched()
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if p.quiescent() {
			return StatusOK
		}
		select {
		case <-timeout:
			return StatusTimeout
		case <-ticker.C:
		}
	}
}

// IsRunning reports whether the pool still accepts Submit calls.
func (p *Pool) IsRunning() bool { return p.running.Load() }

// NumWorkers returns the fixed worker-set size.
func (p *Pool) NumWorkers() int { return len(p.workers) }

// Shutdown stops the pool. It is idempotent: concurrent and repeated
// calls all block until the single underlying shutdown sequence
// completes, then return.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.doShutdown()
		close(p.shutdownDone)
	})
	<-p.shutdownDone
}

func (p *Pool) doShutdown() {
	p.running.Store(false)
	if p.logger != nil {
		p.logger.Info("pool shutdown: draining queued work")
	}

	if status := p.WaitFor(p.config.ShutdownDeadline); status == StatusTimeout {
		if p.logger != nil {
			p.logger.Warn("pool shutdown: drain deadline exceeded, proceeding anyway")
		}
	}

	// Wake any worker parked in the back-off ladder so it re-checks
	// running and unwinds its loop.
	for _, w := range p.workers {
		w.local.Push(sentinelTask())
	}

	p.joinWorkers()
	p.drainAndCancel()
}

// joinWorkers waits for every worker goroutine to exit, bounded by
// Config.ShutdownDeadline. A worker that doesn't join in time is logged
// and abandoned rather than blocking Shutdown forever — Go has no
// "detach" primitive for a goroutine, so abandonment here simply means
// joinWorkers stops waiting on it; the goroutine itself keeps running
// until it notices p.running is false on its own.
func (p *Pool) joinWorkers() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownDeadline)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			select {
			case <-w.done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("worker %d did not join before the shutdown deadline", w.id)
			}
		})
	}

	if err := g.Wait(); err != nil && p.logger != nil {
		p.logger.Warn("pool shutdown: some workers were not joined and were abandoned",
			zap.Error(err))
	}
}

// drainAndCancel empties every queue and resolves any completion whose
// task never ran with ErrPoolShutDown.
func (p *Pool) drainAndCancel() {
	cancel := func(q *queue.Queue[Task]) {
		for {
			t, ok := q.TryPop()
			if !ok {
				break
			}
			if t.isSentinel() {
				continue
			}
			t.completion.resolve(nil, ErrPoolShutDown)
			p.activeTasks.Add(-1)
			if p.metrics != nil {
				p.metrics.inFlight.Dec()
			}
		}
	}

	cancel(p.global)
	for _, w := range p.workers {
		cancel(w.local)
	}
}

// Stats returns a snapshot of pool-wide and per-worker counters.
func (p *Pool) Stats() Stats {
	workerStats := make([]WorkerStats, len(p.workers))
	totalDepth := 0
	var stolen, failed uint64

	for i, w := range p.workers {
		depth := w.queueDepth()
		totalDepth += depth
		stolen += w.tasksStolen.Load()
		failed += w.tasksFailed.Load()

		workerStats[i] = WorkerStats{
			WorkerID:      w.id,
			TasksExecuted: w.tasksExecuted.Load(),
			TasksFailed:   w.tasksFailed.Load(),
			TasksStolen:   w.tasksStolen.Load(),
			QueueDepth:    depth,
			State:         w.state(),
		}
	}

	return Stats{
		Submitted:       p.submittedTotal.Load(),
		Completed:       p.completedTotal.Load(),
		Failed:          failed,
		Stolen:          stolen,
		Rejected:        p.rejectedTotal.Load(),
		InFlight:        p.activeTasks.Load(),
		NumWorkers:      len(p.workers),
		TotalQueueDepth: totalDepth,
		GlobalQueueSize: p.global.Size(),
		WorkerStats:     workerStats,
	}
}
