package fixture

import (
	"strings"
	"sync/atomic"

	"github.com/rivo/uniseg"

	"github.com/dshills/sectionflow/internal/collection"
)

// TextNode is a block of text laid out in terminal cells. Width is measured
// in display columns, so wide and combined characters count correctly, and
// height is the number of lines after wrapping.
type TextNode struct {
	Text string

	resident atomic.Bool
	measures atomic.Int64
	releases atomic.Int64
}

// NewTextNode creates a text node.
func NewTextNode(text string, resident bool) *TextNode {
	n := &TextNode{Text: text}
	n.resident.Store(resident)
	return n
}

// Resident reports whether the node is resident.
func (n *TextNode) Resident() bool { return n.resident.Load() }

// SetResident changes residency.
func (n *TextNode) SetResident(v bool) { n.resident.Store(v) }

// Measure wraps the text to c.Max.Width columns, or not at all when the
// width is unbounded.
func (n *TextNode) Measure(c collection.Constraint) collection.Size {
	n.measures.Add(1)
	lines := n.Lines(int(c.Max.Width))
	widest := 0
	for _, l := range lines {
		widest = max(widest, uniseg.StringWidth(l))
	}
	return collection.Size{Width: float64(widest), Height: float64(len(lines))}
}

// Release implements collection.Releaser.
func (n *TextNode) Release() { n.releases.Add(1) }

// Measures returns how often the node was measured.
func (n *TextNode) Measures() int64 { return n.measures.Load() }

// Releases returns how often the node was released.
func (n *TextNode) Releases() int64 { return n.releases.Load() }

// Lines returns the text wrapped at width display columns. Explicit line
// breaks are kept. A width of zero or less disables wrapping.
func (n *TextNode) Lines(width int) []string {
	var out []string
	for _, para := range strings.Split(n.Text, "\n") {
		out = append(out, wrap(para, width)...)
	}
	return out
}

// wrap breaks s into lines of at most width columns at spaces. A word
// wider than width is split between grapheme clusters.
func wrap(s string, width int) []string {
	if width <= 0 || uniseg.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range strings.Fields(s) {
		ww := uniseg.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+ww <= width {
			line.WriteByte(' ')
			line.WriteString(word)
			lineWidth += 1 + ww
			continue
		}
		if lineWidth > 0 {
			flush()
		}
		if ww <= width {
			line.WriteString(word)
			lineWidth = ww
			continue
		}
		state := -1
		for len(word) > 0 {
			var cluster string
			var w int
			cluster, word, w, state = uniseg.FirstGraphemeClusterInString(word, state)
			if lineWidth > 0 && lineWidth+w > width {
				flush()
			}
			line.WriteString(cluster)
			lineWidth += w
		}
	}
	if line.Len() > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}
