package collection

import (
	"cmp"
	"fmt"
	"slices"
)

// Path locates an item inside one specific snapshot of a store.
type Path struct {
	Section int
	Item    int
}

// P is shorthand for Path{Section: section, Item: item}.
func P(section, item int) Path {
	return Path{Section: section, Item: item}
}

// String returns "section.item".
func (p Path) String() string {
	return fmt.Sprintf("%d.%d", p.Section, p.Item)
}

// Compare orders paths by section, then item.
func (p Path) Compare(o Path) int {
	if c := cmp.Compare(p.Section, o.Section); c != 0 {
		return c
	}
	return cmp.Compare(p.Item, o.Item)
}

// WithSection returns p moved to another section.
func (p Path) WithSection(section int) Path {
	p.Section = section
	return p
}

// SortPaths returns an ascending copy of paths.
func SortPaths(paths []Path) []Path {
	out := slices.Clone(paths)
	slices.SortFunc(out, Path.Compare)
	return out
}

// SortIndices returns an ascending copy of indices.
func SortIndices(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return out
}

// sortPathsWith sorts paths ascending and permutes items alongside them.
func sortPathsWith(paths []Path, items []*Item) ([]Path, []*Item) {
	idx := make([]int, len(paths))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return paths[a].Compare(paths[b])
	})
	sp := make([]Path, len(paths))
	si := make([]*Item, len(items))
	for i, j := range idx {
		sp[i] = paths[j]
		si[i] = items[j]
	}
	return sp, si
}
