package controller

import (
	"github.com/dshills/sectionflow/internal/affinity"
	"github.com/dshills/sectionflow/internal/layout"
	"github.com/dshills/sectionflow/internal/logging"
	"github.com/dshills/sectionflow/internal/metrics"
	"github.com/dshills/sectionflow/internal/txn"
)

// Option configures a Controller.
type Option func(*Controller)

// WithAffinity binds the controller to the goroutine recorded in tok.
func WithAffinity(tok *affinity.Token) Option {
	return func(c *Controller) {
		if tok != nil {
			c.token = tok
		}
	}
}

// WithPoster sets how notifications are delivered.
func WithPoster(p Poster) Option {
	return func(c *Controller) {
		if p != nil {
			c.poster = p
		}
	}
}

// WithDelegate attaches a delegate at construction.
func WithDelegate(d any) Option {
	return func(c *Controller) {
		c.observers.Store(probe(d))
	}
}

// WithChunkSize sets the layout chunk size.
func WithChunkSize(n int) Option {
	return func(c *Controller) {
		c.layoutOpts = append(c.layoutOpts, layout.WithChunkSize(n))
	}
}

// WithParallelism sets the number of chunks measured concurrently.
func WithParallelism(n int) Option {
	return func(c *Controller) {
		c.layoutOpts = append(c.layoutOpts, layout.WithParallelism(n))
	}
}

// WithAsyncFetching moves full-reload fetches onto a background goroutine.
// The data-source lock is held for the whole fetch.
func WithAsyncFetching(enabled bool) Option {
	return func(c *Controller) {
		c.asyncFetch = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithPanicHandler replaces the executors' crash-fast panic handler.
func WithPanicHandler(h txn.PanicHandler) Option {
	return func(c *Controller) {
		c.panicHandler = h
	}
}
