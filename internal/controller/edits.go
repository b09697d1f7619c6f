package controller

import (
	"slices"

	"github.com/google/uuid"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/edit"
	"github.com/dshills/sectionflow/internal/logging"
)

// InsertSections inserts the sections now at indices in the data source.
func (c *Controller) InsertSections(indices []int, anim edit.Animation) {
	c.enter("InsertSections")
	c.perform(edit.InsertSections(slices.Clone(indices), anim))
}

// DeleteSections deletes the sections at indices.
func (c *Controller) DeleteSections(indices []int, anim edit.Animation) {
	c.enter("DeleteSections")
	c.perform(edit.DeleteSections(slices.Clone(indices), anim))
}

// ReloadSections replaces the items of the sections at indices with fresh
// ones from the data source.
func (c *Controller) ReloadSections(indices []int, anim edit.Animation) {
	c.enter("ReloadSections")
	c.perform(edit.ReloadSections(slices.Clone(indices), anim))
}

// MoveSection moves a section and its measured items.
func (c *Controller) MoveSection(from, to int, anim edit.Animation) {
	c.enter("MoveSection")
	c.perform(edit.MoveSection(from, to, anim))
}

// InsertItems inserts the items now at paths in the data source.
func (c *Controller) InsertItems(paths []collection.Path, anim edit.Animation) {
	c.enter("InsertItems")
	c.perform(edit.InsertItems(slices.Clone(paths), anim))
}

// DeleteItems deletes the items at paths.
func (c *Controller) DeleteItems(paths []collection.Path, anim edit.Animation) {
	c.enter("DeleteItems")
	c.perform(edit.DeleteItems(slices.Clone(paths), anim))
}

// ReloadItems replaces the items at paths with fresh ones from the data
// source.
func (c *Controller) ReloadItems(paths []collection.Path, anim edit.Animation) {
	c.enter("ReloadItems")
	c.perform(edit.ReloadItems(slices.Clone(paths), anim))
}

// MoveItem moves one item. Its layout is kept.
func (c *Controller) MoveItem(from, to collection.Path, anim edit.Animation) {
	c.enter("MoveItem")
	c.perform(edit.MoveItem(from, to, anim))
}

// FullReload discards every item and section and rebuilds the collection
// from the data source. completion, if not nil, is posted once the new
// collection has been committed.
func (c *Controller) FullReload(completion func()) {
	c.enter("FullReload")
	c.perform(edit.FullReload(completion))
}

// RelayoutAll remeasures every item against fresh constraints without
// changing membership.
func (c *Controller) RelayoutAll() {
	c.enter("RelayoutAll")
	c.perform(edit.RelayoutAll())
}

// BeginBatch opens a batch, or nests one inside the open batch. Edits made
// until the matching outermost EndBatch are deferred.
func (c *Controller) BeginBatch() {
	c.enter("BeginBatch")
	if !c.batch.Open() {
		c.drain()
	}
	depth := c.batch.Begin()
	c.metrics.SetBatchDepth(depth)
	c.logger.Debug("batch opened at depth %d", depth)
}

// EndBatch closes one batch level. When the outermost batch closes, the
// deferred edits run between a BatchBegan and a BatchEnded notification,
// and queries read a frozen copy of the collection until they are done.
// completion receives the delegate's result, or true without a batch
// observer. Completions of nested levels run with the outermost one.
func (c *Controller) EndBatch(animated bool, completion func(finished bool)) {
	c.enter("EndBatch")
	ops, closed := c.batch.End()
	c.metrics.SetBatchDepth(c.batch.Depth())
	if completion != nil {
		c.batchCompletions = append(c.batchCompletions, completion)
	}
	if !closed {
		return
	}
	completions := c.batchCompletions
	c.batchCompletions = nil
	c.logger.Debug("batch closed with %d deferred operations", len(ops))
	c.metrics.BatchClosed(len(ops))

	c.enqueue("batch-begin", func() {
		c.external.Store(c.completed.Load().Clone())
		if obs := c.observers.Load(); obs.batch != nil {
			c.post(obs.batch.BatchBegan)
		}
	})
	for _, op := range ops {
		c.execute(op)
	}
	c.flushFetches()
	c.enqueue("batch-end", func() {
		c.external.Store(nil)
		done := func(finished bool) {
			for _, fn := range completions {
				fn(finished)
			}
		}
		if obs := c.observers.Load(); obs.batch != nil {
			c.post(func() { obs.batch.BatchEnded(animated, done) })
			return
		}
		c.post(func() { done(true) })
	})
}

// perform defers op while a batch is open and executes it otherwise.
func (c *Controller) perform(op edit.Operation) {
	c.metrics.CountOperation(op.Kind.String())
	if c.batch.Capture(op) {
		c.logger.Debug("deferred %s", op)
		return
	}
	c.execute(op)
}

// execute drains the executor, fetches, measures resident items and
// enqueues the transaction for op.
func (c *Controller) execute(op edit.Operation) {
	c.drain()
	if c.logger.Enabled(logging.LevelDebug) {
		c.logger.Debug("executing %s", op)
	}
	switch op.Kind {
	case edit.KindInsertSections:
		c.insertSections(op)
	case edit.KindDeleteSections:
		c.deleteSections(op)
	case edit.KindReloadSections:
		c.reloadSections(op)
	case edit.KindMoveSection:
		c.moveSection(op)
	case edit.KindInsertItems:
		c.insertItems(op)
	case edit.KindDeleteItems:
		c.deleteItems(op)
	case edit.KindReloadItems:
		c.reloadItems(op)
	case edit.KindMoveItem:
		c.moveItem(op)
	case edit.KindFullReload:
		c.fullReload(op)
	case edit.KindRelayoutAll:
		c.relayoutAll()
	default:
		collection.Assert("execute", collection.ErrOutOfRange, "unknown operation %s", op.Kind)
	}
}

// flushFetches waits for pending async fetches and runs their
// continuations, so their transactions are queued before anything enqueued
// next.
func (c *Controller) flushFetches() {
	if c.fetchQ == nil {
		return
	}
	c.fetchQ.Drain()
	c.runHandoffs()
}

func (c *Controller) shape() []int {
	return c.completed.Load().Shape()
}

func (c *Controller) insertSections(op edit.Operation) {
	checkInsertSections("InsertSections", c.shape(), op.Sections)
	f := c.fetchSections(op.Sections)
	c.measureResident(f)
	c.enqueue("insert-sections", func() {
		c.insertSectionsTx(f.sections, op.Animation)
		c.layoutAndInsertTx(f.items, f.paths, op.Animation)
	})
}

func (c *Controller) deleteSections(op edit.Operation) {
	checkExistingSections("DeleteSections", c.shape(), op.Sections)
	c.enqueue("delete-sections", func() {
		c.deleteSectionsTx(op.Sections, op.Animation)
	})
}

func (c *Controller) reloadSections(op edit.Operation) {
	checkExistingSections("ReloadSections", c.shape(), op.Sections)
	f := c.fetchSections(op.Sections)
	c.measureResident(f)
	c.enqueue("reload-sections", func() {
		c.deleteItemsTx(c.editing.PathsInSections(f.sections), op.Animation)
		c.layoutAndInsertTx(f.items, f.paths, op.Animation)
	})
}

func (c *Controller) moveSection(op edit.Operation) {
	checkMoveSection("MoveSection", c.shape(), op.FromSection, op.ToSection)
	from, to := op.FromSection, op.ToSection
	c.enqueue("move-section", func() {
		items := c.deleteItemsTx(c.editing.PathsInSections([]int{from}), op.Animation)
		c.editing.DeleteSections([]int{from})
		c.publish()
		c.notifySectionsDeleted([]int{from}, op.Animation)
		c.insertSectionsTx([]int{to}, op.Animation)
		paths := make([]collection.Path, len(items))
		for i := range items {
			paths[i] = collection.P(to, i)
		}
		c.insertItemsTx(items, paths, op.Animation)
	})
}

func (c *Controller) insertItems(op edit.Operation) {
	checkInsertPaths("InsertItems", c.shape(), op.Paths)
	f := c.fetchPaths(op.Paths)
	c.measureResident(f)
	c.enqueue("insert-items", func() {
		c.layoutAndInsertTx(f.items, f.paths, op.Animation)
	})
}

func (c *Controller) deleteItems(op edit.Operation) {
	checkExistingPaths("DeleteItems", c.shape(), op.Paths)
	paths := collection.SortPaths(op.Paths)
	c.enqueue("delete-items", func() {
		c.deleteItemsTx(paths, op.Animation)
	})
}

func (c *Controller) reloadItems(op edit.Operation) {
	checkExistingPaths("ReloadItems", c.shape(), op.Paths)
	f := c.fetchPaths(op.Paths)
	c.measureResident(f)
	c.enqueue("reload-items", func() {
		c.deleteItemsTx(f.paths, op.Animation)
		c.layoutAndInsertTx(f.items, f.paths, op.Animation)
	})
}

func (c *Controller) moveItem(op edit.Operation) {
	checkMoveItem("MoveItem", c.shape(), op.From, op.To)
	from, to := op.From, op.To
	c.enqueue("move-item", func() {
		items := c.deleteItemsTx([]collection.Path{from}, op.Animation)
		c.insertItemsTx(items, []collection.Path{to}, op.Animation)
	})
}

func (c *Controller) fullReload(op edit.Operation) {
	if c.fetchQ == nil {
		c.commitFullReload(c.fetchAll(), op.Completion)
		return
	}
	err := c.fetchQ.Enqueue("fetch-all", func() {
		f := c.fetchAll()
		c.addHandoff(func() { c.commitFullReload(f, op.Completion) })
	})
	if err != nil {
		collection.Assert("FullReload", ErrClosed, "%v", err)
	}
}

// commitFullReload runs on the control goroutine once the fetch is done.
func (c *Controller) commitFullReload(f fetched, completion func()) {
	c.measureResident(f)
	c.logger.Debug("full reload: %d sections, %d items", len(f.sections), len(f.items))
	c.enqueue("full-reload", func() {
		if paths := c.editing.AllPaths(); len(paths) > 0 {
			c.deleteItemsTx(paths, edit.AnimationNone)
		}
		if n := c.editing.SectionCount(); n > 0 {
			all := make([]int, n)
			for i := range all {
				all[i] = i
			}
			c.editing.DeleteSections(all)
			c.publish()
			c.notifySectionsDeleted(all, edit.AnimationNone)
		}
		c.insertSectionsTx(f.sections, edit.AnimationNone)
		c.layoutAndInsertTx(f.items, f.paths, edit.AnimationNone)
		if completion != nil {
			c.post(completion)
		}
	})
}

func (c *Controller) relayoutAll() {
	snap := c.completed.Load().Clone()
	var items []*collection.Item
	var paths []collection.Path
	snap.Each(func(p collection.Path, it *collection.Item) {
		if it.Resident() {
			it.Status = collection.StatusResidentUnmeasured
		}
		items = append(items, it)
		paths = append(paths, p)
	})
	c.measureResident(fetched{items: items, paths: paths})

	resident := make(map[uuid.UUID]*collection.Item)
	for _, it := range items {
		if it.Resident() && it.Status == collection.StatusMeasured {
			resident[it.ID] = it
		}
	}
	c.enqueue("relayout-all", func() {
		var items []*collection.Item
		var paths []collection.Path
		c.editing.Each(func(p collection.Path, it *collection.Item) {
			if fresh, ok := resident[it.ID]; ok && it.Resident() {
				it.Layout = fresh.Layout
				it.Status = collection.StatusMeasured
			}
			items = append(items, it)
			paths = append(paths, p)
		})
		c.scheduler.Relayout(items, paths, c.source)
		c.publish()
	})
}
