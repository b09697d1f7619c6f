// Package layout schedules item measurement.
//
// Measurement is split in two phases. Resident items, whose presentation
// objects are live, are measured by MeasureResident on the control
// goroutine. Every other item is measured by Run, which cuts the list into
// fixed-size chunks, groups chunks into waves as wide as the configured
// parallelism, and fans each wave out to worker goroutines. Run does not
// return until every wave has been measured and committed.
package layout

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/logging"
	"github.com/dshills/sectionflow/internal/metrics"
)

// DefaultChunkSize is the number of items one worker measures per chunk.
const DefaultChunkSize = 5

// ConstraintSource supplies the layout envelope for a path.
type ConstraintSource interface {
	Constraint(p collection.Path) collection.Constraint
}

// ConstraintFunc adapts a function to ConstraintSource.
type ConstraintFunc func(p collection.Path) collection.Constraint

// Constraint implements ConstraintSource.
func (f ConstraintFunc) Constraint(p collection.Path) collection.Constraint {
	return f(p)
}

// CommitFunc receives each wave once all of its items are measured. It runs
// on the goroutine that called Run.
type CommitFunc func(items []*collection.Item, paths []collection.Path)

// Scheduler measures items in parallel waves.
type Scheduler struct {
	chunkSize   int
	parallelism int
	logger      *logging.Logger
	metrics     *metrics.Metrics

	residentMeasured atomic.Uint64
	workerMeasured   atomic.Uint64
	chunks           atomic.Uint64
	waves            atomic.Uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithChunkSize sets the number of items per chunk.
func WithChunkSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithParallelism sets the number of chunks per wave.
func WithParallelism(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New creates a scheduler. Parallelism defaults to the number of logical
// CPUs.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		chunkSize:   DefaultChunkSize,
		parallelism: runtime.NumCPU(),
		logger:      logging.NullLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("layout")
	return s
}

// ChunkSize returns the configured chunk size.
func (s *Scheduler) ChunkSize() int { return s.chunkSize }

// Parallelism returns the configured wave width.
func (s *Scheduler) Parallelism() int { return s.parallelism }

// WaveSize returns the number of items in a full wave.
func (s *Scheduler) WaveSize() int { return s.chunkSize * s.parallelism }

// MeasureResident measures every resident, unmeasured item on the calling
// goroutine and returns how many were measured. It must run on the control
// goroutine.
func (s *Scheduler) MeasureResident(items []*collection.Item, paths []collection.Path, src ConstraintSource) int {
	checkLengths("MeasureResident", items, paths)
	n := 0
	for i, it := range items {
		if it.Status != collection.StatusResidentUnmeasured {
			continue
		}
		it.Measure(src.Constraint(paths[i]))
		n++
	}
	s.residentMeasured.Add(uint64(n))
	s.metrics.AddMeasured(metrics.PhaseResident, n)
	return n
}

// Run measures every unresident item and hands each wave to commit, in
// order. Items in any other state are left untouched. Constraints are read
// on the calling goroutine before a wave is fanned out, so src need not be
// safe for concurrent use. Run returns after the last wave is committed.
func (s *Scheduler) Run(items []*collection.Item, paths []collection.Path, src ConstraintSource, commit CommitFunc) {
	checkLengths("Run", items, paths)
	wave := s.WaveSize()
	for lo := 0; lo < len(items); lo += wave {
		hi := min(lo+wave, len(items))
		s.runWave(items[lo:hi], paths[lo:hi], src)
		if commit != nil {
			commit(items[lo:hi], paths[lo:hi])
		}
	}
}

// runWave measures one wave and blocks until every chunk has finished.
func (s *Scheduler) runWave(items []*collection.Item, paths []collection.Path, src ConstraintSource) {
	constraints := make([]collection.Constraint, len(items))
	for i, it := range items {
		if it.Status == collection.StatusUnresident {
			constraints[i] = src.Constraint(paths[i])
		}
	}

	var g errgroup.Group
	var measured atomic.Int64
	chunks := 0
	for lo := 0; lo < len(items); lo += s.chunkSize {
		lo := lo
		hi := min(lo+s.chunkSize, len(items))
		chunks++
		g.Go(func() error {
			for k := lo; k < hi; k++ {
				it := items[k]
				if it.Status != collection.StatusUnresident {
					continue
				}
				it.Measure(constraints[k])
				measured.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(measured.Load())
	s.chunks.Add(uint64(chunks))
	s.waves.Add(1)
	s.workerMeasured.Add(uint64(n))
	s.metrics.AddWave(chunks)
	s.metrics.AddMeasured(metrics.PhaseWorker, n)
	if s.logger.Enabled(logging.LevelDebug) {
		s.logger.Debug("wave of %d items in %d chunks measured %d", len(items), chunks, n)
	}
}

// Relayout remeasures non-resident items regardless of their current state.
// Resident items keep their state and must be handled by MeasureResident.
func (s *Scheduler) Relayout(items []*collection.Item, paths []collection.Path, src ConstraintSource) {
	for _, it := range items {
		if !it.Resident() {
			it.Status = collection.StatusUnresident
		}
	}
	s.Run(items, paths, src, nil)
}

// Stats returns cumulative scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		ResidentMeasured: s.residentMeasured.Load(),
		WorkerMeasured:   s.workerMeasured.Load(),
		Chunks:           s.chunks.Load(),
		Waves:            s.waves.Load(),
	}
}

// Stats contains scheduler counters.
type Stats struct {
	ResidentMeasured uint64
	WorkerMeasured   uint64
	Chunks           uint64
	Waves            uint64
}

func checkLengths(op string, items []*collection.Item, paths []collection.Path) {
	if len(items) != len(paths) {
		collection.Assert(op, collection.ErrOutOfRange, "%d items for %d paths", len(items), len(paths))
	}
}
