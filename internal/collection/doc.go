// Package collection provides the two-level section/item store used by the
// layout controller.
//
// A Store holds an ordered list of sections, each an ordered list of items.
// Items are addressed by Path (section, item) and carry an opaque Node handle
// supplied by the data source together with the layout computed for it.
//
// # Generations
//
// The controller keeps several Stores alive at once (editing, completed and,
// during a batch, external). Clone produces a copy that shares no slices and
// no Item records with its source, so a mutation of one generation can never
// be observed through another. Only the Node handle is shared: it belongs to
// the caller, not to the store.
//
// # Bounds
//
// Every operation expects its paths and indices to be valid for the current
// shape of the store. An out-of-range path is a programming error and causes
// a panic with an *AssertionError wrapping ErrOutOfRange.
//
// # Ordering
//
// Batch inserts and deletes sort their targets before applying them. Inserts
// are applied in ascending order, so each path names the final position of
// the inserted item. Deletes are applied in descending order within each
// section, so each path names the position before the delete.
package collection
