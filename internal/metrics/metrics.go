// Package metrics exposes Prometheus collectors for the transaction index.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
)

const namespace = "txindex"

// Recorder groups the collectors. It also implements index.Observer so the
// tree reports rotations and evictions directly.
type Recorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	rotations  *prometheus.CounterVec
	evictions  prometheus.Counter
	records    prometheus.Gauge
	height     prometheus.Gauge
	skipped    prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses a private registry,
// which keeps tests and repeated construction from colliding.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Recorder{
		// Labels: op (insert, search, delete, filter, group, stats), outcome
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "operations_total",
			Help:      "Index operations by kind and outcome",
		}, []string{"op", "outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "operation_duration_seconds",
			Help:      "Index operation latency in seconds",
			Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 1e-2, 0.1, 1},
		}, []string{"op"}),
		rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rotations_total",
			Help:      "Single rotations performed while rebalancing",
		}, []string{"direction"}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "evictions_total",
			Help:      "Minimum-key evictions made to respect capacity",
		}),
		records: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "records",
			Help:      "Records currently indexed",
		}),
		height: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "height",
			Help:      "Current tree height",
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "skipped_lines_total",
			Help:      "Dataset lines skipped as malformed",
		}),
	}
}

// Observe records one finished operation.
func (r *Recorder) Observe(op, outcome string, elapsed time.Duration) {
	r.operations.WithLabelValues(op, outcome).Inc()
	r.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetShape publishes the current size and height of the index.
func (r *Recorder) SetShape(records, height int) {
	r.records.Set(float64(records))
	r.height.Set(float64(height))
}

// SkippedLine counts a malformed dataset line.
func (r *Recorder) SkippedLine() {
	r.skipped.Inc()
}

// Rotated counts one rebalancing rotation by kind.
func (r *Recorder) Rotated(rot index.Rotation) {
	r.rotations.WithLabelValues(rot.String()).Inc()
}

// Evicted counts a record dropped to make room in a full index.
func (r *Recorder) Evicted(domain.Transaction) {
	r.evictions.Inc()
}

var _ index.Observer = (*Recorder)(nil)
