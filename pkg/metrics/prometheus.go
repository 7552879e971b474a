package metrics

import (
	"RegimeDash/internal/domain/models"
	"RegimeDash/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ repository.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	transitions  *prometheus.CounterVec
	superseded   prometheus.Counter
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	published    *prometheus.CounterVec
	earlyWarning prometheus.Gauge
	bufferDepth  *prometheus.GaugeVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder on the given registerer. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimedash_session_transitions_total",
				Help: "Session phase transitions",
			},
			[]string{"phase"},
		),
		superseded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "regimedash_session_superseded_total",
				Help: "Results discarded because a newer date was requested",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimedash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimedash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimedash_snapshots_published_total",
				Help: "Snapshots delivered to sinks",
			},
			[]string{"sink", "result"},
		),
		earlyWarning: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "regimedash_early_warning_probability",
				Help: "Early-warning probability of the committed guidance",
			},
		),
		bufferDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimedash_pipeline_buffer_depth",
				Help: "Snapshots waiting for delivery per sink",
			},
			[]string{"sink"},
		),
	}
}

// RecordTransition counts a move into phase.
func (r *Recorder) RecordTransition(phase models.Phase) {
	r.transitions.WithLabelValues(string(phase)).Inc()
}

// RecordSuperseded counts a discarded stale result.
func (r *Recorder) RecordSuperseded() {
	r.superseded.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPublished records a sink delivery outcome.
func (r *Recorder) RecordPublished(sink string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.published.WithLabelValues(sink, result).Inc()
}

// RecordEarlyWarning sets the gauge to the latest committed probability.
func (r *Recorder) RecordEarlyWarning(prob float64) {
	r.earlyWarning.Set(prob)
}

// RecordBufferDepth sets the number of snapshots pending for sink.
func (r *Recorder) RecordBufferDepth(sink string, depth int) {
	r.bufferDepth.WithLabelValues(sink).Set(float64(depth))
}
