package fixture

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/controller"
	"github.com/dshills/sectionflow/internal/edit"
)

const doc = `
sections:
  - title: Fruit
    items:
      - Apple
      - text: Blood orange
        resident: true
  - title: Narrow
    max_width: 4
    items:
      - 日本語
  - title: Empty
`

func TestParse(t *testing.T) {
	src, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if src.SectionCount() != 3 {
		t.Fatalf("SectionCount() = %d", src.SectionCount())
	}
	if got := []int{src.ItemCount(0), src.ItemCount(1), src.ItemCount(2)}; !reflect.DeepEqual(got, []int{2, 1, 0}) {
		t.Errorf("item counts = %v", got)
	}
	if src.Title(1) != "Narrow" {
		t.Errorf("Title(1) = %q", src.Title(1))
	}
	n := src.NodeAt(collection.P(0, 1)).(*TextNode)
	if n.Text != "Blood orange" || !n.Resident() {
		t.Errorf("node = %q resident=%v", n.Text, n.Resident())
	}
	if src.NodeAt(collection.P(0, 0)).Resident() {
		t.Error("shorthand item should not be resident")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "sections: [unclosed"},
		{"negative width", "sections:\n  - max_width: -3\n"},
		{"items not a list", "sections:\n  - items: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, ErrInvalidFixture) {
				t.Errorf("Parse() = %v, want ErrInvalidFixture", err)
			}
		})
	}
}

func TestConstraintNarrowedBySection(t *testing.T) {
	src, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	src.SetConstraint(collection.Constraint{Max: collection.Size{Width: 20}})

	if got := src.Constraint(collection.P(0, 0)).Max.Width; got != 20 {
		t.Errorf("section 0 width = %v, want 20", got)
	}
	if got := src.Constraint(collection.P(1, 0)).Max.Width; got != 4 {
		t.Errorf("section 1 width = %v, want 4", got)
	}
}

func TestTextNodeLines(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"unbounded", "hello world", 0, []string{"hello world"}},
		{"fits", "hello", 10, []string{"hello"}},
		{"word wrap", "the quick brown fox", 10, []string{"the quick", "brown fox"}},
		{"long word", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"wide runes", "日本語", 4, []string{"日本", "語"}},
		{"hard breaks", "a\nb c", 1, []string{"a", "b", "c"}},
		{"empty", "", 5, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewTextNode(tt.text, false)
			if got := n.Lines(tt.width); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lines(%d) = %q, want %q", tt.width, got, tt.want)
			}
		})
	}
}

func TestTextNodeMeasure(t *testing.T) {
	n := NewTextNode("日本語 ok", false)
	got := n.Measure(collection.Constraint{Max: collection.Size{Width: 6}})
	if got != (collection.Size{Width: 6, Height: 2}) {
		t.Errorf("Measure() = %+v", got)
	}
	got = n.Measure(collection.Constraint{})
	if got != (collection.Size{Width: 9, Height: 1}) {
		t.Errorf("unbounded Measure() = %+v", got)
	}
	if n.Measures() != 2 {
		t.Errorf("Measures() = %d", n.Measures())
	}
}

func TestControllerLayout(t *testing.T) {
	src, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	src.SetConstraint(collection.Constraint{Max: collection.Size{Width: 6}})

	c := controller.New(src)
	c.FullReload(nil)
	c.Drain()

	want := map[collection.Path]collection.Size{
		collection.P(0, 0): {Width: 5, Height: 1},
		collection.P(0, 1): {Width: 6, Height: 2},
		collection.P(1, 0): {Width: 4, Height: 2},
	}
	for p, size := range want {
		if got := c.ItemAt(p).Layout.Size; got != size {
			t.Errorf("size at %s = %+v, want %+v", p, got, size)
		}
	}

	src.Lock()
	src.Insert(collection.P(2, 0), NewTextNode("kiwi", false))
	src.Unlock()
	c.InsertItems([]collection.Path{collection.P(2, 0)}, edit.AnimationNone)
	c.Drain()
	if c.ItemCount(2) != 1 {
		t.Errorf("ItemCount(2) = %d", c.ItemCount(2))
	}

	resident := src.NodeAt(collection.P(0, 1)).(*TextNode)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if resident.Releases() != 1 {
		t.Errorf("resident node released %d times", resident.Releases())
	}
}
