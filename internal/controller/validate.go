package controller

import (
	"github.com/dshills/sectionflow/internal/collection"
)

// The checks below run on the control goroutine against the shape of
// completed, which equals editing once the executor is drained. They raise
// the same assertions the store would, but on the caller's goroutine.

func checkExistingSections(op string, shape []int, indices []int) {
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(shape) {
			collection.Assert(op, collection.ErrOutOfRange, "section %d outside [0, %d)", idx, len(shape))
		}
		if seen[idx] {
			collection.Assert(op, collection.ErrOutOfRange, "duplicate section %d", idx)
		}
		seen[idx] = true
	}
}

func checkInsertSections(op string, shape []int, indices []int) {
	sorted := collection.SortIndices(indices)
	for n, idx := range sorted {
		if n > 0 && sorted[n-1] == idx {
			collection.Assert(op, collection.ErrOutOfRange, "duplicate section %d", idx)
		}
		if idx < 0 || idx > len(shape)+n {
			collection.Assert(op, collection.ErrOutOfRange, "section %d outside [0, %d]", idx, len(shape)+n)
		}
	}
}

func checkExistingPaths(op string, shape []int, paths []collection.Path) {
	seen := make(map[collection.Path]bool, len(paths))
	for _, p := range paths {
		if p.Section < 0 || p.Section >= len(shape) {
			collection.Assert(op, collection.ErrOutOfRange, "path %s: section outside [0, %d)", p, len(shape))
		}
		if p.Item < 0 || p.Item >= shape[p.Section] {
			collection.Assert(op, collection.ErrOutOfRange, "path %s: item outside [0, %d)", p, shape[p.Section])
		}
		if seen[p] {
			collection.Assert(op, collection.ErrOutOfRange, "duplicate path %s", p)
		}
		seen[p] = true
	}
}

func checkInsertPaths(op string, shape []int, paths []collection.Path) {
	sorted := collection.SortPaths(paths)
	added := make(map[int]int)
	for n, p := range sorted {
		if n > 0 && sorted[n-1] == p {
			collection.Assert(op, collection.ErrOutOfRange, "duplicate path %s", p)
		}
		if p.Section < 0 || p.Section >= len(shape) {
			collection.Assert(op, collection.ErrOutOfRange, "path %s: section outside [0, %d)", p, len(shape))
		}
		limit := shape[p.Section] + added[p.Section]
		if p.Item < 0 || p.Item > limit {
			collection.Assert(op, collection.ErrOutOfRange, "path %s: item outside [0, %d]", p, limit)
		}
		added[p.Section]++
	}
}

func checkMoveItem(op string, shape []int, from, to collection.Path) {
	checkExistingPaths(op, shape, []collection.Path{from})
	if to.Section < 0 || to.Section >= len(shape) {
		collection.Assert(op, collection.ErrOutOfRange, "path %s: section outside [0, %d)", to, len(shape))
	}
	limit := shape[to.Section]
	if to.Section == from.Section {
		limit--
	}
	if to.Item < 0 || to.Item > limit {
		collection.Assert(op, collection.ErrOutOfRange, "path %s: item outside [0, %d]", to, limit)
	}
}

func checkMoveSection(op string, shape []int, from, to int) {
	for _, idx := range []int{from, to} {
		if idx < 0 || idx >= len(shape) {
			collection.Assert(op, collection.ErrOutOfRange, "section %d outside [0, %d)", idx, len(shape))
		}
	}
}
