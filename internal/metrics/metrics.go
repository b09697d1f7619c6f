// Package metrics exposes Prometheus collectors for the layout controller.
//
// A nil *Metrics is valid and records nothing, so components accept one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "sectionflow"

// Measurement phases.
const (
	PhaseResident = "resident"
	PhaseWorker   = "worker"
)

// Metrics holds the controller collectors.
type Metrics struct {
	transactions       prometheus.Counter
	transactionPanics  prometheus.Counter
	transactionSeconds prometheus.Histogram
	queueDepth         prometheus.Gauge
	measured           *prometheus.CounterVec
	waves              prometheus.Counter
	chunks             prometheus.Counter
	batchesOpen        prometheus.Gauge
	batches            prometheus.Counter
	deferred           prometheus.Counter
	operations         *prometheus.CounterVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transactions: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transactions_total",
			Help:      "Transactions run by the serial executor.",
		}),
		transactionPanics: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transaction_panics_total",
			Help:      "Transactions that aborted with a panic.",
		}),
		transactionSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time spent running one transaction.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_depth",
			Help:      "Transactions waiting in the serial executor.",
		}),
		measured: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_measured_total",
			Help:      "Items measured, by phase.",
		}, []string{"phase"}),
		waves: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "layout_waves_total",
			Help:      "Layout waves dispatched.",
		}),
		chunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "layout_chunks_total",
			Help:      "Layout chunks dispatched to workers.",
		}),
		batchesOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "batch_depth",
			Help:      "Current batch nesting depth.",
		}),
		batches: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Outermost batches closed.",
		}),
		deferred: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "deferred_operations_total",
			Help:      "Edit operations captured while a batch was open.",
		}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Edit operations executed, by kind.",
		}, []string{"kind"}),
	}
}

// ObserveTransaction records one finished transaction.
func (m *Metrics) ObserveTransaction(d time.Duration, panicked bool) {
	if m == nil {
		return
	}
	m.transactions.Inc()
	m.transactionSeconds.Observe(d.Seconds())
	if panicked {
		m.transactionPanics.Inc()
	}
}

// SetQueueDepth records the executor backlog.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// AddMeasured counts n items measured in phase.
func (m *Metrics) AddMeasured(phase string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.measured.WithLabelValues(phase).Add(float64(n))
}

// AddWave counts one wave of the given chunk count.
func (m *Metrics) AddWave(chunks int) {
	if m == nil {
		return
	}
	m.waves.Inc()
	m.chunks.Add(float64(chunks))
}

// SetBatchDepth records the batch nesting depth.
func (m *Metrics) SetBatchDepth(depth int) {
	if m == nil {
		return
	}
	m.batchesOpen.Set(float64(depth))
}

// BatchClosed counts an outermost batch close with n deferred operations.
func (m *Metrics) BatchClosed(n int) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.deferred.Add(float64(n))
}

// CountOperation counts one executed edit operation.
func (m *Metrics) CountOperation(kind string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind).Inc()
}
