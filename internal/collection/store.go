package collection

import (
	"slices"

	"github.com/google/uuid"
)

// Store is an ordered list of sections of ordered items.
//
// A Store is not safe for concurrent mutation. Within the controller each
// generation has exactly one writer.
type Store struct {
	sections [][]*Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// SectionCount returns the number of sections.
func (s *Store) SectionCount() int {
	return len(s.sections)
}

// ItemCount returns the number of items in section.
func (s *Store) ItemCount(section int) int {
	s.checkSection("ItemCount", section, len(s.sections)-1)
	return len(s.sections[section])
}

// Count returns the total number of items.
func (s *Store) Count() int {
	n := 0
	for _, sec := range s.sections {
		n += len(sec)
	}
	return n
}

// ItemAt returns the item stored at p.
func (s *Store) ItemAt(p Path) *Item {
	s.checkPath("ItemAt", p, false)
	return s.sections[p.Section][p.Item]
}

// Items returns the items stored at paths, in the order given.
func (s *Store) Items(paths []Path) []*Item {
	out := make([]*Item, len(paths))
	for i, p := range paths {
		out[i] = s.ItemAt(p)
	}
	return out
}

// Section returns the items of one section. The slice is owned by the store
// and must not be modified.
func (s *Store) Section(section int) []*Item {
	s.checkSection("Section", section, len(s.sections)-1)
	return s.sections[section]
}

// PathOf returns the path of the item with the given id.
func (s *Store) PathOf(id uuid.UUID) (Path, bool) {
	for si, sec := range s.sections {
		for ii, it := range sec {
			if it.ID == id {
				return Path{Section: si, Item: ii}, true
			}
		}
	}
	return Path{}, false
}

// AllPaths returns the path of every item in ascending order.
func (s *Store) AllPaths() []Path {
	paths := make([]Path, 0, s.Count())
	for si, sec := range s.sections {
		for ii := range sec {
			paths = append(paths, Path{Section: si, Item: ii})
		}
	}
	return paths
}

// PathsInSections returns the paths of every item in the given sections, in
// ascending order.
func (s *Store) PathsInSections(indices []int) []Path {
	var paths []Path
	for _, si := range SortIndices(indices) {
		s.checkSection("PathsInSections", si, len(s.sections)-1)
		for ii := range s.sections[si] {
			paths = append(paths, Path{Section: si, Item: ii})
		}
	}
	return paths
}

// Each calls fn for every item in ascending path order.
func (s *Store) Each(fn func(p Path, it *Item)) {
	for si, sec := range s.sections {
		for ii, it := range sec {
			fn(Path{Section: si, Item: ii}, it)
		}
	}
}

// Shape returns the item count of every section.
func (s *Store) Shape() []int {
	shape := make([]int, len(s.sections))
	for i, sec := range s.sections {
		shape[i] = len(sec)
	}
	return shape
}

// InsertSections inserts sections at the given final indices. The targets
// are sorted before insertion; sections[i] belongs at indices[i].
func (s *Store) InsertSections(indices []int, sections [][]*Item) {
	if len(indices) != len(sections) {
		Assert("InsertSections", ErrOutOfRange, "%d indices for %d sections", len(indices), len(sections))
	}
	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return indices[a] - indices[b] })

	for n, k := range order {
		s.checkSection("InsertSections", indices[k], len(s.sections)+n)
	}
	for _, k := range order {
		s.sections = slices.Insert(s.sections, indices[k], slices.Clone(sections[k]))
	}
}

// DeleteSections removes the sections at the given indices, which refer to
// positions before the delete.
func (s *Store) DeleteSections(indices []int) {
	sorted := SortIndices(indices)
	for i, idx := range sorted {
		if i > 0 && sorted[i-1] == idx {
			Assert("DeleteSections", ErrOutOfRange, "duplicate section %d", idx)
		}
		s.checkSection("DeleteSections", idx, len(s.sections)-1)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		s.sections = slices.Delete(s.sections, sorted[i], sorted[i]+1)
	}
}

// InsertItems inserts items at the given final paths. The targets are sorted
// before insertion; items[i] belongs at paths[i].
func (s *Store) InsertItems(paths []Path, items []*Item) {
	if len(paths) != len(items) {
		Assert("InsertItems", ErrOutOfRange, "%d paths for %d items", len(paths), len(items))
	}
	sp, si := sortPathsWith(paths, items)
	added := make(map[int]int)
	for _, p := range sp {
		if p.Section < 0 || p.Section >= len(s.sections) {
			Assert("InsertItems", ErrOutOfRange, "path %s: section outside [0, %d)", p, len(s.sections))
		}
		limit := len(s.sections[p.Section]) + added[p.Section]
		if p.Item < 0 || p.Item > limit {
			Assert("InsertItems", ErrOutOfRange, "path %s: item outside [0, %d]", p, limit)
		}
		added[p.Section]++
	}
	for i, p := range sp {
		s.sections[p.Section] = slices.Insert(s.sections[p.Section], p.Item, si[i])
	}
}

// DeleteItems removes the items at paths, which refer to positions before
// the delete. The removed items are returned in ascending path order.
func (s *Store) DeleteItems(paths []Path) []*Item {
	sorted := SortPaths(paths)
	for i, p := range sorted {
		if i > 0 && sorted[i-1] == p {
			Assert("DeleteItems", ErrOutOfRange, "duplicate path %s", p)
		}
		s.checkPath("DeleteItems", p, false)
	}
	removed := make([]*Item, len(sorted))
	for i, p := range sorted {
		removed[i] = s.sections[p.Section][p.Item]
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		s.sections[p.Section] = slices.Delete(s.sections[p.Section], p.Item, p.Item+1)
	}
	return removed
}

// MoveSection moves the section at from so that it ends up at index to.
func (s *Store) MoveSection(from, to int) {
	s.checkSection("MoveSection", from, len(s.sections)-1)
	s.checkSection("MoveSection", to, len(s.sections)-1)
	sec := s.sections[from]
	s.sections = slices.Delete(s.sections, from, from+1)
	s.sections = slices.Insert(s.sections, to, sec)
}

// MoveItem moves the item at from so that it ends up at to. The destination
// is interpreted after the item has been removed.
func (s *Store) MoveItem(from, to Path) *Item {
	s.checkPath("MoveItem", from, false)
	if to.Section < 0 || to.Section >= len(s.sections) {
		Assert("MoveItem", ErrOutOfRange, "path %s: section outside [0, %d)", to, len(s.sections))
	}
	limit := len(s.sections[to.Section])
	if to.Section == from.Section {
		limit--
	}
	if to.Item < 0 || to.Item > limit {
		Assert("MoveItem", ErrOutOfRange, "path %s: item outside [0, %d]", to, limit)
	}
	it := s.sections[from.Section][from.Item]
	s.sections[from.Section] = slices.Delete(s.sections[from.Section], from.Item, from.Item+1)
	s.sections[to.Section] = slices.Insert(s.sections[to.Section], to.Item, it)
	return it
}

// Clone returns a deep copy sharing no slices and no item records with s.
func (s *Store) Clone() *Store {
	c := &Store{sections: make([][]*Item, len(s.sections))}
	for i, sec := range s.sections {
		c.sections[i] = cloneItems(sec)
	}
	return c
}

// CloneSection returns a deep copy of one section's items.
func (s *Store) CloneSection(section int) []*Item {
	s.checkSection("CloneSection", section, len(s.sections)-1)
	return cloneItems(s.sections[section])
}

func cloneItems(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// checkSection asserts 0 <= idx <= max.
func (s *Store) checkSection(op string, idx, max int) {
	if idx < 0 || idx > max {
		Assert(op, ErrOutOfRange, "section %d outside [0, %d]", idx, max)
	}
}

// checkPath asserts that p addresses an existing item, or an insertion slot
// when inserting is true.
func (s *Store) checkPath(op string, p Path, inserting bool) {
	if p.Section < 0 || p.Section >= len(s.sections) {
		Assert(op, ErrOutOfRange, "path %s: section outside [0, %d)", p, len(s.sections))
	}
	limit := len(s.sections[p.Section])
	if !inserting {
		limit--
	}
	if p.Item < 0 || p.Item > limit {
		Assert(op, ErrOutOfRange, "path %s: item outside [0, %d]", p, limit)
	}
}
