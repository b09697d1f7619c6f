package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/controller"
	"github.com/dshills/sectionflow/internal/source/fixture"
)

// titled is implemented by sources with section titles.
type titled interface {
	Title(section int) string
}

// render prints the completed layout. Items are stacked vertically, so an
// item's printed offset is the sum of the heights above it in its section.
func render(w io.Writer, c *controller.Controller, src controller.DataSource) {
	for s := 0; s < c.SectionCount(); s++ {
		title := fmt.Sprintf("section %d", s)
		if t, ok := src.(titled); ok && t.Title(s) != "" {
			title = t.Title(s)
		}
		fmt.Fprintf(w, "== %s ==\n", title)

		y := 0.0
		for i := 0; i < c.ItemCount(s); i++ {
			p := collection.P(s, i)
			it := c.ItemAt(p)
			size := it.Layout.Size
			fmt.Fprintf(w, "%-6s y=%-4g %gx%g %s\n", p, y, size.Width, size.Height, it.Status)
			y += size.Height

			tn, ok := it.Node.(*fixture.TextNode)
			if !ok {
				continue
			}
			for _, line := range tn.Lines(int(it.Layout.Constraint.Max.Width)) {
				fmt.Fprintf(w, "  | %s\n", strings.TrimRight(line, " "))
			}
		}
	}
}
