// Package batch tracks nested begin/end batch windows and the edit
// operations captured while one is open.
//
// Nesting is a plain counter. Operations captured at any depth are released
// together, in capture order, when the outermost End brings the depth back
// to zero.
package batch

import (
	"errors"
	"slices"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/edit"
)

// ErrUnbalanced classifies the assertion raised by End without Begin.
var ErrUnbalanced = errors.New("end batch without matching begin")

// Coordinator counts open batches and queues deferred operations. It is
// used from the control goroutine only and is not synchronized.
type Coordinator struct {
	depth   int
	pending []edit.Operation
}

// New creates an idle coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// Begin opens a batch, or nests one inside the open batch, and returns the
// new depth.
func (c *Coordinator) Begin() int {
	c.depth++
	return c.depth
}

// Open reports whether a batch is open.
func (c *Coordinator) Open() bool {
	return c.depth > 0
}

// Depth returns the nesting depth.
func (c *Coordinator) Depth() int {
	return c.depth
}

// Capture queues op if a batch is open and reports whether it did. A false
// return means the caller must run op immediately.
func (c *Coordinator) Capture(op edit.Operation) bool {
	if c.depth == 0 {
		return false
	}
	c.pending = append(c.pending, op)
	return true
}

// Pending returns a copy of the captured operations.
func (c *Coordinator) Pending() []edit.Operation {
	return slices.Clone(c.pending)
}

// End closes one level. When the outermost batch closes it returns the
// captured operations in capture order and closed == true, and the pending
// list is cleared.
func (c *Coordinator) End() (ops []edit.Operation, closed bool) {
	if c.depth == 0 {
		collection.Assert("EndBatch", ErrUnbalanced, "batch depth is already 0")
	}
	c.depth--
	if c.depth > 0 {
		return nil, false
	}
	ops = c.pending
	c.pending = nil
	return ops, true
}
