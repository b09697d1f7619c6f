package collection

import (
	"fmt"

	"github.com/google/uuid"
)

// Size is a width/height pair in layout units.
type Size struct {
	Width  float64
	Height float64
}

// Constraint bounds the size an item may take.
type Constraint struct {
	Min Size
	Max Size
}

// Clamp returns s limited to the constraint.
func (c Constraint) Clamp(s Size) Size {
	return Size{
		Width:  clamp(s.Width, c.Min.Width, c.Max.Width),
		Height: clamp(s.Height, c.Min.Height, c.Max.Height),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Rect is a positioned size.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Layout is the result of measuring an item.
type Layout struct {
	// Constraint is the envelope the item was measured against.
	Constraint Constraint

	// Size is the measured size.
	Size Size

	// Frame places the item in its own coordinate space.
	Frame Rect
}

// Status tracks where an item stands in the measurement pipeline.
type Status int

const (
	// StatusUnresident marks an item without a live presentation object. It
	// may be measured on any goroutine.
	StatusUnresident Status = iota

	// StatusResidentUnmeasured marks an item whose presentation object is
	// live and which must be measured on the control goroutine.
	StatusResidentUnmeasured

	// StatusMeasured marks an item whose Layout is current.
	StatusMeasured
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUnresident:
		return "unresident"
	case StatusResidentUnmeasured:
		return "resident-unmeasured"
	case StatusMeasured:
		return "measured"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Node is the caller-supplied content of an item.
type Node interface {
	// Measure returns the node's size within the constraint. It may be
	// expensive and, for non-resident nodes, is called off the control
	// goroutine.
	Measure(c Constraint) Size

	// Resident reports whether the node owns a live presentation object.
	Resident() bool
}

// Releaser is implemented by nodes that hold resources to free when the
// controller is torn down.
type Releaser interface {
	Release()
}

// Item is one entry of a section.
type Item struct {
	// ID identifies the item across generations.
	ID uuid.UUID

	// Node is the caller's content handle.
	Node Node

	// Layout is the most recent measurement.
	Layout Layout

	// Status is the measurement state.
	Status Status
}

// NewItem wraps a node in a fresh item. Resident nodes start as
// StatusResidentUnmeasured, all others as StatusUnresident.
func NewItem(node Node) *Item {
	it := &Item{
		ID:   uuid.New(),
		Node: node,
	}
	it.Reset()
	return it
}

// Reset clears the measurement state so the item is measured again.
func (it *Item) Reset() {
	if it.Node != nil && it.Node.Resident() {
		it.Status = StatusResidentUnmeasured
	} else {
		it.Status = StatusUnresident
	}
}

// Resident reports whether the item's node is resident.
func (it *Item) Resident() bool {
	return it.Node != nil && it.Node.Resident()
}

// Measure lays the item out within c and marks it measured. The frame is
// anchored at the origin.
func (it *Item) Measure(c Constraint) {
	var size Size
	if it.Node != nil {
		size = c.Clamp(it.Node.Measure(c))
	}
	it.Layout = Layout{
		Constraint: c,
		Size:       size,
		Frame:      Rect{Width: size.Width, Height: size.Height},
	}
	it.Status = StatusMeasured
}

// Clone returns an independent copy of the item record. The Node handle is
// shared because it is owned by the caller.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	c := *it
	return &c
}
