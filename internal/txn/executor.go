package txn

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/sectionflow/internal/affinity"
	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/logging"
	"github.com/dshills/sectionflow/internal/metrics"
)

// PanicHandler receives a task's panic value and stack.
type PanicHandler func(task string, value any, stack []byte)

type task struct {
	name string
	fn   func()
}

// Executor is a single-worker FIFO task queue.
type Executor struct {
	name         string
	logger       *logging.Logger
	metrics      *metrics.Metrics
	panicHandler PanicHandler

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool
	exited chan struct{}

	// worker is bound to the worker goroutine once it starts.
	worker atomic.Pointer[affinity.Token]

	enqueued    atomic.Uint64
	processed   atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithName labels the executor in logs.
func WithName(name string) Option {
	return func(e *Executor) {
		e.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithPanicHandler replaces the default crash-fast panic handler.
func WithPanicHandler(h PanicHandler) Option {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// New creates an executor and starts its worker.
func New(opts ...Option) *Executor {
	e := &Executor{
		name:   "txn",
		logger: logging.NullLogger,
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("txn").WithField("executor", e.name)
	if e.panicHandler == nil {
		e.panicHandler = e.crash
	}
	e.cond = sync.NewCond(&e.mu)

	started := make(chan struct{})
	go e.run(started)
	<-started
	return e
}

// crash logs the panic and re-raises it on the worker goroutine.
func (e *Executor) crash(name string, value any, stack []byte) {
	e.logger.Error("task %q panicked: %v\n%s", name, value, stack)
	panic(value)
}

// Enqueue appends a task to the queue.
func (e *Executor) Enqueue(name string, fn func()) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.queue = append(e.queue, task{name: name, fn: fn})
	depth := len(e.queue)
	e.cond.Signal()
	e.mu.Unlock()

	e.enqueued.Add(1)
	e.metrics.SetQueueDepth(depth)
	return nil
}

// Drain blocks until every task enqueued before the call has run. It returns
// immediately on a closed executor, whose queue is already empty.
func (e *Executor) Drain() {
	if w := e.worker.Load(); w != nil && w.OnBound() {
		collection.Assert("Drain", ErrDrainFromWorker, "executor %q", e.name)
	}
	done := make(chan struct{})
	if err := e.Enqueue("drain", func() { close(done) }); err != nil {
		<-e.exited
		return
	}
	<-done
}

// OnWorker reports whether the caller is the executor's worker goroutine.
func (e *Executor) OnWorker() bool {
	w := e.worker.Load()
	return w != nil && w.OnBound()
}

// Close runs every queued task and stops the worker.
func (e *Executor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.cond.Broadcast()
	e.mu.Unlock()

	<-e.exited
	return nil
}

func (e *Executor) run(started chan<- struct{}) {
	defer close(e.exited)
	e.worker.Store(affinity.Bind())
	close(started)

	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue[0] = task{}
		e.queue = e.queue[1:]
		depth := len(e.queue)
		e.mu.Unlock()

		e.metrics.SetQueueDepth(depth)
		e.execute(t)
	}
}

// execute runs one task, recovering a panic for the handler.
func (e *Executor) execute(t task) {
	start := time.Now()
	panicked := true
	defer func() {
		d := time.Since(start)
		e.processed.Add(1)
		e.totalTimeNs.Add(d.Nanoseconds())
		e.metrics.ObserveTransaction(d, panicked)
		if !panicked {
			return
		}
		r := recover()
		e.panicked.Add(1)
		e.panicHandler(t.name, r, debug.Stack())
	}()

	if e.logger.Enabled(logging.LevelDebug) {
		e.logger.Debug("running %s", t.name)
	}
	t.fn()
	panicked = false
}

// QueueDepth returns the number of tasks waiting to run.
func (e *Executor) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stats returns executor statistics.
func (e *Executor) Stats() Stats {
	processed := e.processed.Load()
	totalNs := e.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return Stats{
		Enqueued:      e.enqueued.Load(),
		Processed:     processed,
		Panicked:      e.panicked.Load(),
		QueueDepth:    e.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Stats contains executor statistics. Drain barriers count as tasks.
type Stats struct {
	// Enqueued is the number of tasks accepted.
	Enqueued uint64

	// Processed is the number of tasks that have finished or panicked.
	Processed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// QueueDepth is the number of tasks waiting.
	QueueDepth int

	// TotalDuration is the cumulative run time.
	TotalDuration time.Duration

	// AvgDuration is the mean run time.
	AvgDuration time.Duration
}

// String summarizes the stats for logs.
func (s Stats) String() string {
	return fmt.Sprintf("enqueued=%d processed=%d panicked=%d depth=%d avg=%s",
		s.Enqueued, s.Processed, s.Panicked, s.QueueDepth, s.AvgDuration)
}
