package script

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/controller"
	"github.com/dshills/sectionflow/internal/edit"
	"github.com/dshills/sectionflow/internal/source/fixture"
)

const groceries = `
sections = {
  {"milk", "bread"},
  {{text = "a long resident note", resident = true}},
}

function section_count() return #sections end
function item_count(s) return #sections[s + 1] end
function item(s, i) return sections[s + 1][i + 1] end
`

func newSource(t *testing.T, code string, opts ...Option) *Source {
	t.Helper()
	src, err := New(code, opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestShape(t *testing.T) {
	src := newSource(t, groceries)
	if src.SectionCount() != 2 || src.ItemCount(0) != 2 || src.ItemCount(1) != 1 {
		t.Fatalf("shape = %d sections, %d/%d items", src.SectionCount(), src.ItemCount(0), src.ItemCount(1))
	}
	if n := src.NodeAt(collection.P(0, 1)).(*fixture.TextNode); n.Text != "bread" || n.Resident() {
		t.Errorf("node 0.1 = %q resident=%v", n.Text, n.Resident())
	}
	if n := src.NodeAt(collection.P(1, 0)); !n.Resident() {
		t.Error("node 1.0 should be resident")
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"syntax", "function ("},
		{"missing section_count", "function item_count() return 0 end"},
		{"negative count", "function section_count() return -1 end"},
		{"fractional count", "function section_count() return 1.5 end"},
		{"item count not a number", `
function section_count() return 1 end
function item_count() return "two" end`},
		{"item of wrong type", `
function section_count() return 1 end
function item_count() return 1 end
function item() return 42 end`},
		{"item table without text", `
function section_count() return 1 end
function item_count() return 1 end
function item() return {resident = true} end`},
		{"runtime error", `function section_count() error("boom") end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.code); !errors.Is(err, ErrScript) {
				t.Errorf("New() = %v, want ErrScript", err)
			}
		})
	}
}

func TestSandbox(t *testing.T) {
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "loadstring", "require"} {
		t.Run(name, func(t *testing.T) {
			code := "assert(" + name + " == nil, '" + name + " is reachable')\n" +
				"function section_count() return 0 end"
			if _, err := New(code); err != nil {
				t.Errorf("New() = %v", err)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	_, err := New("while true do end", WithTimeout(50*time.Millisecond))
	if !errors.Is(err, ErrScript) {
		t.Fatalf("New() = %v, want ErrScript", err)
	}
}

func TestRefreshKeepsShapeOnError(t *testing.T) {
	src := newSource(t, groceries)

	if err := src.Exec(`table.insert(sections[1], "eggs")`); err != nil {
		t.Fatalf("Exec() = %v", err)
	}
	if err := src.Refresh(); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	if src.ItemCount(0) != 3 {
		t.Errorf("ItemCount(0) = %d, want 3", src.ItemCount(0))
	}

	if err := src.Exec(`function item() return nil end`); err != nil {
		t.Fatal(err)
	}
	if err := src.Refresh(); !errors.Is(err, ErrScript) {
		t.Errorf("Refresh() = %v, want ErrScript", err)
	}
	if src.ItemCount(0) != 3 {
		t.Errorf("shape changed after a failed refresh")
	}
}

func TestConstraint(t *testing.T) {
	src := newSource(t, groceries+`
function constraint(s, i)
  if s == 1 then return {max_width = 8} end
  if i == 1 then error("no constraint for bread") end
  return nil
end`)
	src.SetConstraint(collection.Constraint{Max: collection.Size{Width: 20, Height: 5}})

	c := src.Constraint(collection.P(1, 0))
	if c.Max.Width != 8 || c.Max.Height != 5 {
		t.Errorf("Constraint(1.0) = %+v, want width 8 height 5", c)
	}
	if c := src.Constraint(collection.P(0, 0)); c.Max.Width != 20 {
		t.Errorf("Constraint(0.0) = %+v, want base", c)
	}
	if c := src.Constraint(collection.P(0, 1)); c.Max.Width != 20 {
		t.Errorf("Constraint(0.1) = %+v, want base after error", c)
	}
	if src.ConstraintCalls() != 3 || src.ConstraintErrors() != 1 {
		t.Errorf("calls = %d, errors = %d", src.ConstraintCalls(), src.ConstraintErrors())
	}
}

func TestClosed(t *testing.T) {
	src, err := New(groceries)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := src.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() = %v", err)
	}
	if err := src.Refresh(); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh() = %v", err)
	}
	if err := src.Exec("x = 1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Exec() = %v", err)
	}
}

func TestControllerLayout(t *testing.T) {
	src := newSource(t, groceries+`
function constraint(s, i) return {max_width = 10} end`)

	c := controller.New(src)
	defer c.Close()
	c.FullReload(nil)
	c.Drain()

	if c.SectionCount() != 2 || c.ItemCount(0) != 2 {
		t.Fatalf("controller shape = %d sections", c.SectionCount())
	}
	if got := c.ItemAt(collection.P(0, 0)).Layout.Size; got != (collection.Size{Width: 4, Height: 1}) {
		t.Errorf("milk = %+v", got)
	}
	// "a long resident note" wraps to "a long" / "resident" / "note".
	if got := c.ItemAt(collection.P(1, 0)).Layout.Size; got != (collection.Size{Width: 8, Height: 3}) {
		t.Errorf("note = %+v", got)
	}

	if err := src.Exec(`sections[3] = {"tea"}`); err != nil {
		t.Fatal(err)
	}
	if err := src.Refresh(); err != nil {
		t.Fatal(err)
	}
	c.InsertSections([]int{2}, edit.AnimationNone)
	c.Drain()
	if c.SectionCount() != 3 || !strings.Contains(c.ItemAt(collection.P(2, 0)).Node.(*fixture.TextNode).Text, "tea") {
		t.Errorf("inserted section not laid out")
	}
}
