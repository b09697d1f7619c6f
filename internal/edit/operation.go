// Package edit defines the edit operations accepted by the layout controller.
//
// Operations are plain values. While a batch is open the controller queues
// them instead of running them, so a pending batch can be inspected and
// replayed without capturing arbitrary code.
package edit

import (
	"fmt"

	"github.com/dshills/sectionflow/internal/collection"
)

// Kind identifies the type of an edit operation.
type Kind int

const (
	KindInsertSections Kind = iota
	KindDeleteSections
	KindInsertItems
	KindDeleteItems
	KindMoveSection
	KindMoveItem
	KindReloadSections
	KindReloadItems
	KindFullReload
	KindRelayoutAll
)

var kindNames = [...]string{
	KindInsertSections: "insert-sections",
	KindDeleteSections: "delete-sections",
	KindInsertItems:    "insert-items",
	KindDeleteItems:    "delete-items",
	KindMoveSection:    "move-section",
	KindMoveItem:       "move-item",
	KindReloadSections: "reload-sections",
	KindReloadItems:    "reload-items",
	KindFullReload:     "full-reload",
	KindRelayoutAll:    "relayout-all",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Animation is an opaque hint passed through to the delegate.
type Animation int

// AnimationNone requests no animation.
const AnimationNone Animation = 0

// Operation is one edit command.
type Operation struct {
	Kind Kind

	// Sections targets section-level operations.
	Sections []int

	// Paths targets item-level operations.
	Paths []collection.Path

	// FromSection and ToSection describe a section move.
	FromSection int
	ToSection   int

	// From and To describe an item move.
	From collection.Path
	To   collection.Path

	// Animation is forwarded to the delegate untouched.
	Animation Animation

	// Completion runs after a full reload has been committed.
	Completion func()
}

// String returns a short description for logs.
func (op Operation) String() string {
	switch op.Kind {
	case KindInsertSections, KindDeleteSections, KindReloadSections:
		return fmt.Sprintf("%s %v", op.Kind, op.Sections)
	case KindInsertItems, KindDeleteItems, KindReloadItems:
		return fmt.Sprintf("%s %v", op.Kind, op.Paths)
	case KindMoveSection:
		return fmt.Sprintf("%s %d->%d", op.Kind, op.FromSection, op.ToSection)
	case KindMoveItem:
		return fmt.Sprintf("%s %s->%s", op.Kind, op.From, op.To)
	default:
		return op.Kind.String()
	}
}

// InsertSections builds an insert-sections operation.
func InsertSections(sections []int, anim Animation) Operation {
	return Operation{Kind: KindInsertSections, Sections: sections, Animation: anim}
}

// DeleteSections builds a delete-sections operation.
func DeleteSections(sections []int, anim Animation) Operation {
	return Operation{Kind: KindDeleteSections, Sections: sections, Animation: anim}
}

// ReloadSections builds a reload-sections operation.
func ReloadSections(sections []int, anim Animation) Operation {
	return Operation{Kind: KindReloadSections, Sections: sections, Animation: anim}
}

// MoveSection builds a move-section operation.
func MoveSection(from, to int, anim Animation) Operation {
	return Operation{Kind: KindMoveSection, FromSection: from, ToSection: to, Animation: anim}
}

// InsertItems builds an insert-items operation.
func InsertItems(paths []collection.Path, anim Animation) Operation {
	return Operation{Kind: KindInsertItems, Paths: paths, Animation: anim}
}

// DeleteItems builds a delete-items operation.
func DeleteItems(paths []collection.Path, anim Animation) Operation {
	return Operation{Kind: KindDeleteItems, Paths: paths, Animation: anim}
}

// ReloadItems builds a reload-items operation.
func ReloadItems(paths []collection.Path, anim Animation) Operation {
	return Operation{Kind: KindReloadItems, Paths: paths, Animation: anim}
}

// MoveItem builds a move-item operation.
func MoveItem(from, to collection.Path, anim Animation) Operation {
	return Operation{Kind: KindMoveItem, From: from, To: to, Animation: anim}
}

// FullReload builds a full-reload operation.
func FullReload(completion func()) Operation {
	return Operation{Kind: KindFullReload, Completion: completion}
}

// RelayoutAll builds a relayout-all operation.
func RelayoutAll() Operation {
	return Operation{Kind: KindRelayoutAll}
}
