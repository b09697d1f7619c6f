package controller

import (
	"github.com/dshills/sectionflow/internal/collection"
)

// fetched holds items read from the data source, sorted by path.
type fetched struct {
	sections []int
	items    []*collection.Item
	paths    []collection.Path
}

// locked runs fn inside the data source's lock bracket, if it has one.
func (c *Controller) locked(fn func()) {
	if c.locker != nil {
		c.locker.Lock()
		defer c.locker.Unlock()
	}
	fn()
}

// fetchPaths creates items for the given final paths.
func (c *Controller) fetchPaths(paths []collection.Path) fetched {
	sorted := collection.SortPaths(paths)
	f := fetched{
		items: make([]*collection.Item, len(sorted)),
		paths: sorted,
	}
	c.locked(func() {
		for i, p := range sorted {
			f.items[i] = collection.NewItem(c.source.NodeAt(p))
		}
	})
	return f
}

// fetchSections creates items for every item the source reports in the
// given sections.
func (c *Controller) fetchSections(indices []int) fetched {
	f := fetched{sections: collection.SortIndices(indices)}
	c.locked(func() {
		c.appendSections(&f)
	})
	return f
}

// fetchAll creates items for the entire source.
func (c *Controller) fetchAll() fetched {
	var f fetched
	c.locked(func() {
		n := c.source.SectionCount()
		f.sections = make([]int, n)
		for i := range f.sections {
			f.sections[i] = i
		}
		c.appendSections(&f)
	})
	return f
}

func (c *Controller) appendSections(f *fetched) {
	for _, s := range f.sections {
		count := c.source.ItemCount(s)
		for i := 0; i < count; i++ {
			p := collection.P(s, i)
			f.paths = append(f.paths, p)
			f.items = append(f.items, collection.NewItem(c.source.NodeAt(p)))
		}
	}
}

// measureResident measures the fetched resident items on the control
// goroutine.
func (c *Controller) measureResident(f fetched) {
	if n := c.scheduler.MeasureResident(f.items, f.paths, c.source); n > 0 {
		c.logger.Debug("measured %d resident items", n)
	}
}
