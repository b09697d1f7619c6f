// Package fixture provides a data source backed by a YAML document.
//
// A fixture lists sections of text items:
//
//	sections:
//	  - title: Fruit
//	    items:
//	      - Apple
//	      - text: Blood orange
//	        resident: true
//	  - title: Empty
//	    max_width: 12
//
// Items are TextNodes. A section may narrow the layout envelope with its own
// max_width.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/dshills/sectionflow/internal/collection"
)

// ErrInvalidFixture indicates a fixture document that cannot be used.
var ErrInvalidFixture = errors.New("invalid fixture")

// Document is the YAML form of a fixture.
type Document struct {
	Sections []SectionDef `yaml:"sections"`
}

// SectionDef describes one section.
type SectionDef struct {
	Title    string    `yaml:"title"`
	MaxWidth float64   `yaml:"max_width"`
	Items    []ItemDef `yaml:"items"`
}

// ItemDef describes one item. A bare string is shorthand for an item with
// only text.
type ItemDef struct {
	Text     string `yaml:"text"`
	Resident bool   `yaml:"resident"`
}

// UnmarshalYAML accepts either a scalar or a mapping.
func (d *ItemDef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Text = value.Value
		return nil
	}
	type plain ItemDef
	return value.Decode((*plain)(d))
}

type section struct {
	title    string
	maxWidth float64
	nodes    []*TextNode
}

// Source is a data source whose items can change. Item reads and writes
// must happen inside Lock/Unlock; the controller brackets its fetches that
// way. The section list is fixed at creation, so Constraint needs no lock.
type Source struct {
	mu       sync.Mutex
	sections []section

	constraint atomic.Pointer[collection.Constraint]
}

// New creates a source from a parsed document.
func New(doc Document) (*Source, error) {
	s := &Source{}
	s.SetConstraint(collection.Constraint{})
	for i, def := range doc.Sections {
		if def.MaxWidth < 0 {
			return nil, fmt.Errorf("%w: section %d: negative max_width", ErrInvalidFixture, i)
		}
		sec := section{title: def.Title, maxWidth: def.MaxWidth}
		for _, it := range def.Items {
			sec.nodes = append(sec.nodes, NewTextNode(it.Text, it.Resident))
		}
		s.sections = append(s.sections, sec)
	}
	return s, nil
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (*Source, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	return New(doc)
}

// Load reads a YAML fixture from path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	src, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return src, nil
}

// Lock implements controller.Locker.
func (s *Source) Lock() { s.mu.Lock() }

// Unlock implements controller.Locker.
func (s *Source) Unlock() { s.mu.Unlock() }

// SetConstraint replaces the envelope handed to every item.
func (s *Source) SetConstraint(c collection.Constraint) {
	s.constraint.Store(&c)
}

// SectionCount returns the number of sections.
func (s *Source) SectionCount() int { return len(s.sections) }

// ItemCount returns the number of items in a section.
func (s *Source) ItemCount(section int) int { return len(s.sections[section].nodes) }

// NodeAt returns the node at p.
func (s *Source) NodeAt(p collection.Path) collection.Node {
	return s.sections[p.Section].nodes[p.Item]
}

// Title returns a section's title.
func (s *Source) Title(section int) string { return s.sections[section].title }

// Constraint returns the source envelope, narrowed by the section's
// max_width when it sets one. It does not read the item list.
func (s *Source) Constraint(p collection.Path) collection.Constraint {
	c := *s.constraint.Load()
	var narrow float64
	if p.Section < len(s.sections) {
		narrow = s.sections[p.Section].maxWidth
	}
	if narrow > 0 && (c.Max.Width == 0 || narrow < c.Max.Width) {
		c.Max.Width = narrow
	}
	return c
}

// Insert adds a node at p. Call it inside Lock/Unlock.
func (s *Source) Insert(p collection.Path, n *TextNode) {
	sec := &s.sections[p.Section]
	sec.nodes = slices.Insert(sec.nodes, p.Item, n)
}

// Delete removes the node at p. Call it inside Lock/Unlock.
func (s *Source) Delete(p collection.Path) *TextNode {
	sec := &s.sections[p.Section]
	n := sec.nodes[p.Item]
	sec.nodes = slices.Delete(sec.nodes, p.Item, p.Item+1)
	return n
}
