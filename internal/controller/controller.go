package controller

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/sectionflow/internal/affinity"
	"github.com/dshills/sectionflow/internal/batch"
	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/layout"
	"github.com/dshills/sectionflow/internal/logging"
	"github.com/dshills/sectionflow/internal/metrics"
	"github.com/dshills/sectionflow/internal/txn"
)

// Controller is the control-goroutine facade over the layout pipeline.
type Controller struct {
	token   *affinity.Token
	source  DataSource
	locker  Locker
	poster  Poster
	logger  *logging.Logger
	metrics *metrics.Metrics

	observers atomic.Pointer[observers]

	layoutOpts   []layout.Option
	panicHandler txn.PanicHandler
	asyncFetch   bool

	scheduler *layout.Scheduler
	editingQ  *txn.Executor
	fetchQ    *txn.Executor

	batch            *batch.Coordinator
	batchCompletions []func(finished bool)

	// editing is touched only from tasks on editingQ.
	editing   *collection.Store
	completed atomic.Pointer[collection.Store]
	external  atomic.Pointer[collection.Store]

	// handoffs holds async-fetch continuations that must run on the control
	// goroutine before the next edit is enqueued.
	handoffMu sync.Mutex
	handoffs  []func()

	closed bool
}

// New creates a controller bound to the calling goroutine. All generations
// start empty; call FullReload to populate them from src.
func New(src DataSource, opts ...Option) *Controller {
	c := &Controller{
		source:  src,
		poster:  Inline,
		logger:  logging.NullLogger,
		batch:   batch.New(),
		editing: collection.NewStore(),
	}
	c.observers.Store(probe(nil))
	for _, opt := range opts {
		opt(c)
	}
	if c.token == nil {
		c.token = affinity.Bind()
	}
	c.logger = c.logger.WithComponent("controller")
	c.locker, _ = src.(Locker)

	c.scheduler = layout.New(append([]layout.Option{
		layout.WithLogger(c.logger),
		layout.WithMetrics(c.metrics),
	}, c.layoutOpts...)...)

	executor := func(name string) *txn.Executor {
		return txn.New(
			txn.WithName(name),
			txn.WithLogger(c.logger),
			txn.WithMetrics(c.metrics),
			txn.WithPanicHandler(c.panicHandler),
		)
	}
	c.editingQ = executor("editing")
	if c.asyncFetch {
		c.fetchQ = executor("fetch")
	}

	c.completed.Store(collection.NewStore())
	return c
}

// SetDelegate attaches the delegate and caches which notifications it
// implements. Passing nil detaches it.
func (c *Controller) SetDelegate(d any) {
	c.enter("SetDelegate")
	c.observers.Store(probe(d))
}

// enter performs the checks shared by every public method.
func (c *Controller) enter(op string) {
	c.token.Check(op)
	if c.closed {
		collection.Assert(op, ErrClosed, "controller used after Close")
	}
	c.runHandoffs()
}

// view returns the generation queries read.
func (c *Controller) view() *collection.Store {
	if ext := c.external.Load(); ext != nil {
		return ext
	}
	return c.completed.Load()
}

// SectionCount returns the number of sections visible to callers.
func (c *Controller) SectionCount() int {
	c.enter("SectionCount")
	return c.view().SectionCount()
}

// ItemCount returns the number of items in a visible section.
func (c *Controller) ItemCount(section int) int {
	c.enter("ItemCount")
	return c.view().ItemCount(section)
}

// ItemAt returns a copy of the visible item at p.
func (c *Controller) ItemAt(p collection.Path) *collection.Item {
	c.enter("ItemAt")
	return c.view().ItemAt(p).Clone()
}

// Items returns copies of the visible items at paths.
func (c *Controller) Items(paths []collection.Path) []*collection.Item {
	c.enter("Items")
	items := c.view().Items(paths)
	for i, it := range items {
		items[i] = it.Clone()
	}
	return items
}

// PathOf returns the visible path of the item with the given id.
func (c *Controller) PathOf(id uuid.UUID) (collection.Path, bool) {
	c.enter("PathOf")
	return c.view().PathOf(id)
}

// Snapshot returns a deep copy of the visible collection.
func (c *Controller) Snapshot() *collection.Store {
	c.enter("Snapshot")
	return c.view().Clone()
}

// InBatch reports whether a batch is open on the control goroutine.
func (c *Controller) InBatch() bool {
	c.enter("InBatch")
	return c.batch.Open()
}

// Drain blocks until every submitted edit has been committed.
func (c *Controller) Drain() {
	c.enter("Drain")
	c.drain()
}

func (c *Controller) drain() {
	if c.fetchQ != nil {
		c.fetchQ.Drain()
		c.runHandoffs()
	}
	c.editingQ.Drain()
}

// Close drains pending work, stops the executors and releases every node
// still held by any generation.
func (c *Controller) Close() error {
	c.enter("Close")
	c.drain()
	if c.fetchQ != nil {
		_ = c.fetchQ.Close()
	}
	if err := c.editingQ.Close(); err != nil {
		return err
	}
	c.closed = true

	released := make(map[collection.Releaser]struct{})
	release := func(s *collection.Store) {
		if s == nil {
			return
		}
		s.Each(func(_ collection.Path, it *collection.Item) {
			r, ok := it.Node.(collection.Releaser)
			if !ok || !it.Resident() {
				return
			}
			if _, done := released[r]; done {
				return
			}
			released[r] = struct{}{}
			r.Release()
		})
	}
	release(c.editing)
	release(c.completed.Load())
	release(c.external.Load())

	c.editing = nil
	c.completed.Store(collection.NewStore())
	c.external.Store(nil)
	c.logger.Debug("closed, released %d nodes", len(released))
	return nil
}

// Stats returns pipeline statistics.
func (c *Controller) Stats() Stats {
	c.enter("Stats")
	s := Stats{
		Editing:    c.editingQ.Stats(),
		Layout:     c.scheduler.Stats(),
		BatchDepth: c.batch.Depth(),
		Deferred:   len(c.batch.Pending()),
	}
	if c.fetchQ != nil {
		fs := c.fetchQ.Stats()
		s.Fetch = &fs
	}
	return s
}

// Stats aggregates controller statistics.
type Stats struct {
	Editing    txn.Stats
	Fetch      *txn.Stats
	Layout     layout.Stats
	BatchDepth int
	Deferred   int
}

// publish replaces completed with a copy of editing. Executor only.
func (c *Controller) publish() {
	c.completed.Store(c.editing.Clone())
}

// post hands fn to the poster.
func (c *Controller) post(fn func()) {
	c.poster.Post(fn)
}

// enqueue adds a transaction to the editing executor.
func (c *Controller) enqueue(name string, fn func()) {
	if err := c.editingQ.Enqueue(name, fn); err != nil {
		collection.Assert(name, ErrClosed, "%v", err)
	}
}

// addHandoff queues fn to run on the control goroutine and pokes the poster.
func (c *Controller) addHandoff(fn func()) {
	c.handoffMu.Lock()
	c.handoffs = append(c.handoffs, fn)
	c.handoffMu.Unlock()
	c.post(func() {
		if c.token.OnBound() {
			c.runHandoffs()
		}
	})
}

// runHandoffs runs pending async-fetch continuations. Control goroutine only.
func (c *Controller) runHandoffs() {
	for {
		c.handoffMu.Lock()
		pending := c.handoffs
		c.handoffs = nil
		c.handoffMu.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, fn := range pending {
			fn()
		}
	}
}
