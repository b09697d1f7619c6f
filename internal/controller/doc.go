// Package controller implements the asynchronous collection layout
// controller.
//
// A Controller mirrors a DataSource into a two-level collection of sections
// and items, measures every item, and tells a delegate what changed. All
// public methods must be called from the control goroutine, which is the
// goroutine that called New unless WithAffinity says otherwise.
//
// # Generations
//
// Three copies of the collection exist:
//
//   - editing is mutated only by the serial transaction executor.
//   - completed is a deep copy of editing, replaced after each structural
//     mutation. Queries read it.
//   - external is a deep copy of completed that exists only while a batch's
//     transactions run. While it exists, queries read it instead, so callers
//     see one stable view for the whole batch.
//
// # Edits
//
// Every edit first drains the executor, so data fetched from the source
// matches the state the edit will apply to. It then fetches items, measures
// resident items on the control goroutine, and enqueues one transaction that
// measures the remaining items in parallel, mutates editing, publishes
// completed and notifies the delegate.
//
// Between BeginBatch and the outermost EndBatch, edits are recorded as
// edit.Operation values and replayed in order when the batch closes.
//
// # Notifications
//
// Delegate callbacks and completion functions are handed to a Poster. The
// default poster calls them on the executor goroutine; a mainloop.Loop
// delivers them on the control goroutine instead. Callbacks running on the
// executor goroutine must not call back into the controller.
package controller
