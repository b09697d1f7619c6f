// Package mainloop provides a control-goroutine run loop.
//
// Work posted from any goroutine is queued and later run, in posting order,
// by whichever goroutine pumps the loop. The controller posts delegate
// notifications here so that they reach the delegate on the control
// goroutine.
package mainloop

import (
	"context"
	"sync"
)

// Loop is an unbounded FIFO of callbacks.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It never blocks.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Pump runs every queued callback, including ones posted while pumping, and
// returns how many ran.
func (l *Loop) Pump() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Run pumps the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Pump()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunUntil pumps the loop until done is closed or ctx ends. Callbacks queued
// before done closed are run before it returns.
func (l *Loop) RunUntil(ctx context.Context, done <-chan struct{}) error {
	for {
		l.Pump()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			l.Pump()
			return nil
		case <-l.wake:
		}
	}
}
