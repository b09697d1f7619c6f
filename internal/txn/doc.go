// Package txn provides the serial transaction executor.
//
// An Executor runs tasks on a single worker goroutine, one at a time, in the
// order they were enqueued. The queue is unbounded: Enqueue never blocks and
// never drops a task. Drain blocks the caller until every task enqueued
// before the call has finished.
//
// # Panics
//
// A task that panics is recovered so its value and stack can be reported to
// the configured PanicHandler. The default handler logs the panic and panics
// again, which terminates the process: a failing transaction is a broken
// contract, not a transient fault, and there is no retry.
//
// # Usage
//
//	ex := txn.New(txn.WithName("editing"))
//	defer ex.Close()
//
//	ex.Enqueue("insert", func() { ... })
//	ex.Drain()
package txn
