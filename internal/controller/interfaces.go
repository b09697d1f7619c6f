package controller

import (
	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/edit"
)

// DataSource supplies the collection content.
type DataSource interface {
	// SectionCount returns the number of sections.
	SectionCount() int

	// ItemCount returns the number of items in a section.
	ItemCount(section int) int

	// NodeAt returns the content for the item at p.
	NodeAt(p collection.Path) collection.Node

	// Constraint returns the layout envelope for the item at p. It is called
	// from the control goroutine for resident items and from the executor
	// goroutine for all others, never concurrently.
	Constraint(p collection.Path) collection.Constraint
}

// Locker is implemented by data sources that want fetches bracketed.
type Locker interface {
	Lock()
	Unlock()
}

// BatchObserver is notified when a batch's transactions start and finish.
type BatchObserver interface {
	BatchBegan()
	BatchEnded(animated bool, completion func(finished bool))
}

// ItemObserver is notified of item insertions and deletions.
type ItemObserver interface {
	ItemsInserted(paths []collection.Path, anim edit.Animation)
	ItemsDeleted(paths []collection.Path, anim edit.Animation)
}

// SectionObserver is notified of section insertions and deletions.
type SectionObserver interface {
	SectionsInserted(indices []int, anim edit.Animation)
	SectionsDeleted(indices []int, anim edit.Animation)
}

// Poster delivers callbacks. Post must not block.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

// Post implements Poster.
func (f PosterFunc) Post(fn func()) { f(fn) }

// Inline runs callbacks immediately on the posting goroutine.
var Inline Poster = PosterFunc(func(fn func()) { fn() })

// observers caches the optional delegate capabilities.
type observers struct {
	batch    BatchObserver
	items    ItemObserver
	sections SectionObserver
}

func probe(delegate any) *observers {
	o := &observers{}
	if delegate == nil {
		return o
	}
	o.batch, _ = delegate.(BatchObserver)
	o.items, _ = delegate.(ItemObserver)
	o.sections, _ = delegate.(SectionObserver)
	return o
}
