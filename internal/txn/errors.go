package txn

import "errors"

var (
	// ErrClosed is returned when a task is enqueued after Close.
	ErrClosed = errors.New("executor is closed")

	// ErrDrainFromWorker classifies the assertion raised when a task calls
	// Drain on its own executor, which would never return.
	ErrDrainFromWorker = errors.New("drain called from the executor worker")
)
