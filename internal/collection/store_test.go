package collection

import (
	"errors"
	"reflect"
	"testing"
)

type nameNode struct {
	name     string
	resident bool
	width    float64
}

func (n *nameNode) Measure(c Constraint) Size { return Size{Width: n.width, Height: 10} }
func (n *nameNode) Resident() bool            { return n.resident }

func item(name string) *Item {
	return NewItem(&nameNode{name: name, width: float64(len(name))})
}

func names(s *Store) [][]string {
	out := make([][]string, s.SectionCount())
	for i := range out {
		out[i] = []string{}
		for _, it := range s.Section(i) {
			out[i] = append(out[i], it.Node.(*nameNode).name)
		}
	}
	return out
}

func build(sections ...[]string) *Store {
	s := NewStore()
	idx := make([]int, len(sections))
	secs := make([][]*Item, len(sections))
	for i, names := range sections {
		idx[i] = i
		for _, n := range names {
			secs[i] = append(secs[i], item(n))
		}
	}
	s.InsertSections(idx, secs)
	return s
}

func expectAssertion(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatal("expected assertion panic")
		}
		ae := RecoverAssertion(r)
		if ae == nil {
			t.Fatalf("expected *AssertionError, got %T: %v", r, r)
		}
		if !errors.Is(ae, ErrOutOfRange) {
			t.Errorf("expected ErrOutOfRange, got %v", ae)
		}
	}()
	fn()
}

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s.SectionCount() != 0 {
		t.Errorf("SectionCount() = %d, want 0", s.SectionCount())
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestInsertSections(t *testing.T) {
	tests := []struct {
		name    string
		initial [][]string
		indices []int
		want    [][]string
	}{
		{"into empty", nil, []int{0, 1}, [][]string{{"n0"}, {"n1"}}},
		{"unsorted targets", [][]string{{"a"}}, []int{2, 0}, [][]string{{"n1"}, {"a"}, {"n0"}}},
		{"append", [][]string{{"a"}}, []int{1}, [][]string{{"a"}, {"n0"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(tt.initial...)
			secs := make([][]*Item, len(tt.indices))
			for i := range secs {
				secs[i] = []*Item{item("n" + string(rune('0'+i)))}
			}
			s.InsertSections(tt.indices, secs)
			if got := names(s); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeleteSections(t *testing.T) {
	s := build([]string{"a"}, []string{"b"}, []string{"c"}, []string{"d"})
	s.DeleteSections([]int{3, 0, 2})
	want := [][]string{{"b"}}
	if got := names(s); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestInsertItemsSorted(t *testing.T) {
	s := build([]string{"a", "b"}, []string{})
	paths := []Path{P(0, 3), P(1, 0), P(0, 0), P(0, 2)}
	items := []*Item{item("x3"), item("y0"), item("x0"), item("x2")}
	s.InsertItems(paths, items)

	want := [][]string{{"x0", "a", "x2", "x3", "b"}, {"y0"}}
	if got := names(s); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeleteItems(t *testing.T) {
	s := build([]string{"a", "b", "c", "d"}, []string{"e", "f"})
	removed := s.DeleteItems([]Path{P(0, 3), P(1, 0), P(0, 1)})

	want := [][]string{{"a", "c"}, {"f"}}
	if got := names(s); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	var gotRemoved []string
	for _, it := range removed {
		gotRemoved = append(gotRemoved, it.Node.(*nameNode).name)
	}
	if !reflect.DeepEqual(gotRemoved, []string{"b", "d", "e"}) {
		t.Errorf("removed = %v", gotRemoved)
	}
}

func TestInsertThenDeleteRoundTrip(t *testing.T) {
	s := build([]string{"a", "b", "c"}, []string{"d"})
	before := names(s)

	paths := []Path{P(0, 1), P(0, 4), P(1, 0)}
	s.InsertItems(paths, []*Item{item("x"), item("y"), item("z")})
	s.DeleteItems(paths)

	if got := names(s); !reflect.DeepEqual(got, before) {
		t.Errorf("got %v, want %v", got, before)
	}
}

func TestMoveItem(t *testing.T) {
	tests := []struct {
		name     string
		from, to Path
		want     [][]string
	}{
		{"forward in section", P(0, 0), P(0, 2), [][]string{{"b", "c", "a"}, {"d"}}},
		{"backward in section", P(0, 2), P(0, 0), [][]string{{"c", "a", "b"}, {"d"}}},
		{"across sections", P(0, 1), P(1, 1), [][]string{{"a", "c"}, {"d", "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build([]string{"a", "b", "c"}, []string{"d"})
			moved := s.MoveItem(tt.from, tt.to)
			if got := names(s); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if p, ok := s.PathOf(moved.ID); !ok || p != tt.to {
				t.Errorf("PathOf(moved) = %v, %v; want %v", p, ok, tt.to)
			}
		})
	}
}

func TestMoveSection(t *testing.T) {
	s := build([]string{"a"}, []string{"b"}, []string{"c"})
	s.MoveSection(0, 2)
	want := [][]string{{"b"}, {"c"}, {"a"}}
	if got := names(s); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := build([]string{"a", "b"}, []string{"c"})
	s.ItemAt(P(0, 0)).Layout.Size = Size{Width: 7}

	c := s.Clone()
	if !reflect.DeepEqual(names(c), names(s)) {
		t.Fatalf("clone differs: %v vs %v", names(c), names(s))
	}
	if c.ItemAt(P(0, 0)) == s.ItemAt(P(0, 0)) {
		t.Error("clone shares item records")
	}
	if c.ItemAt(P(0, 0)).ID != s.ItemAt(P(0, 0)).ID {
		t.Error("clone must keep item identity")
	}

	// Mutating the original must not leak into the clone.
	s.ItemAt(P(0, 0)).Layout.Size = Size{Width: 99}
	s.InsertItems([]Path{P(0, 1)}, []*Item{item("x")})
	s.DeleteSections([]int{1})

	if got := c.ItemAt(P(0, 0)).Layout.Size.Width; got != 7 {
		t.Errorf("clone layout changed to %v", got)
	}
	want := [][]string{{"a", "b"}, {"c"}}
	if got := names(c); !reflect.DeepEqual(got, want) {
		t.Errorf("clone shape changed: %v", got)
	}
}

func TestCloneSharedBackingArray(t *testing.T) {
	// A section inserted from a caller slice must not alias that slice.
	s := NewStore()
	sec := make([]*Item, 1, 8)
	sec[0] = item("a")
	s.InsertSections([]int{0}, [][]*Item{sec})
	sec = append(sec, item("b"))
	_ = sec
	s.InsertItems([]Path{P(0, 1)}, []*Item{item("c")})
	if got := names(s)[0]; !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("got %v", got)
	}
}

func TestPathsInSections(t *testing.T) {
	s := build([]string{"a", "b"}, []string{}, []string{"c"})
	got := s.PathsInSections([]int{2, 0})
	want := []Path{P(0, 0), P(0, 1), P(2, 0)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if all := s.AllPaths(); !reflect.DeepEqual(all, want) {
		t.Errorf("AllPaths() = %v, want %v", all, want)
	}
}

func TestOutOfRangeAssertions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(s *Store)
	}{
		{"item at missing section", func(s *Store) { s.ItemAt(P(5, 0)) }},
		{"item past end", func(s *Store) { s.ItemAt(P(0, 2)) }},
		{"negative item", func(s *Store) { s.ItemAt(P(0, -1)) }},
		{"insert gap", func(s *Store) { s.InsertItems([]Path{P(0, 4)}, []*Item{item("x")}) }},
		{"insert section gap", func(s *Store) { s.InsertSections([]int{3}, [][]*Item{nil}) }},
		{"delete missing section", func(s *Store) { s.DeleteSections([]int{2}) }},
		{"delete duplicate path", func(s *Store) { s.DeleteItems([]Path{P(0, 0), P(0, 0)}) }},
		{"move past end", func(s *Store) { s.MoveItem(P(0, 0), P(0, 2)) }},
		{"item count", func(s *Store) { s.ItemCount(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build([]string{"a", "b"}, []string{"c"})
			expectAssertion(t, func() { tt.fn(s) })
		})
	}
}

func TestFailedDeleteLeavesStoreIntact(t *testing.T) {
	s := build([]string{"a", "b"}, []string{"c"})
	expectAssertion(t, func() { s.DeleteItems([]Path{P(0, 0), P(1, 4)}) })
	want := [][]string{{"a", "b"}, {"c"}}
	if got := names(s); !reflect.DeepEqual(got, want) {
		t.Errorf("partial delete applied: %v", got)
	}
}

func TestItemMeasure(t *testing.T) {
	it := item("hello")
	if it.Status != StatusUnresident {
		t.Fatalf("Status = %v, want unresident", it.Status)
	}
	it.Measure(Constraint{Max: Size{Width: 3, Height: 100}})
	if it.Status != StatusMeasured {
		t.Errorf("Status = %v, want measured", it.Status)
	}
	if it.Layout.Size.Width != 3 {
		t.Errorf("width = %v, want clamped to 3", it.Layout.Size.Width)
	}
	if it.Layout.Frame != (Rect{Width: 3, Height: 10}) {
		t.Errorf("Frame = %+v", it.Layout.Frame)
	}

	resident := NewItem(&nameNode{name: "r", resident: true})
	if resident.Status != StatusResidentUnmeasured {
		t.Errorf("resident Status = %v", resident.Status)
	}
}
