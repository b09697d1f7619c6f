package controller

import (
	"slices"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/edit"
)

// Everything in this file runs on the editing executor's worker.

func (c *Controller) insertSectionsTx(indices []int, anim edit.Animation) {
	if len(indices) == 0 {
		return
	}
	c.editing.InsertSections(indices, make([][]*collection.Item, len(indices)))
	c.publish()
	c.notifySectionsInserted(indices, anim)
}

func (c *Controller) deleteSectionsTx(indices []int, anim edit.Animation) {
	if len(indices) == 0 {
		return
	}
	c.deleteItemsTx(c.editing.PathsInSections(indices), anim)
	c.editing.DeleteSections(indices)
	c.publish()
	c.notifySectionsDeleted(indices, anim)
}

func (c *Controller) deleteItemsTx(paths []collection.Path, anim edit.Animation) []*collection.Item {
	if len(paths) == 0 {
		return nil
	}
	removed := c.editing.DeleteItems(paths)
	c.publish()
	c.notifyItemsDeleted(collection.SortPaths(paths), anim)
	return removed
}

func (c *Controller) insertItemsTx(items []*collection.Item, paths []collection.Path, anim edit.Animation) {
	if len(paths) == 0 {
		return
	}
	c.editing.InsertItems(paths, items)
	c.publish()
	c.notifyItemsInserted(collection.SortPaths(paths), anim)
}

// layoutAndInsertTx measures the unmeasured items wave by wave and inserts
// each wave as soon as it is laid out.
func (c *Controller) layoutAndInsertTx(items []*collection.Item, paths []collection.Path, anim edit.Animation) {
	c.scheduler.Run(items, paths, c.source, func(wave []*collection.Item, wavePaths []collection.Path) {
		c.insertItemsTx(wave, wavePaths, anim)
	})
}

func (c *Controller) notifyItemsInserted(paths []collection.Path, anim edit.Animation) {
	if obs := c.observers.Load(); obs.items != nil && len(paths) > 0 {
		paths = slices.Clone(paths)
		c.post(func() { obs.items.ItemsInserted(paths, anim) })
	}
}

func (c *Controller) notifyItemsDeleted(paths []collection.Path, anim edit.Animation) {
	if obs := c.observers.Load(); obs.items != nil && len(paths) > 0 {
		paths = slices.Clone(paths)
		c.post(func() { obs.items.ItemsDeleted(paths, anim) })
	}
}

func (c *Controller) notifySectionsInserted(indices []int, anim edit.Animation) {
	if obs := c.observers.Load(); obs.sections != nil && len(indices) > 0 {
		indices = collection.SortIndices(indices)
		c.post(func() { obs.sections.SectionsInserted(indices, anim) })
	}
}

func (c *Controller) notifySectionsDeleted(indices []int, anim edit.Animation) {
	if obs := c.observers.Load(); obs.sections != nil && len(indices) > 0 {
		indices = collection.SortIndices(indices)
		c.post(func() { obs.sections.SectionsDeleted(indices, anim) })
	}
}
