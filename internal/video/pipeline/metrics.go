package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/romariotrain/visiguard/internal/video/models"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeAbandoned = "abandoned"
)

// Metrics is safe to use as a nil pointer.
type Metrics struct {
	jobs        *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	checkpoints *prometheus.CounterVec
	active      prometheus.Gauge
	duration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visiguard",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Pipeline jobs by outcome.",
		}, []string{"outcome"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visiguard",
			Subsystem: "pipeline",
			Name:      "verdicts_total",
			Help:      "Sensitivity verdicts applied to completed videos.",
		}, []string{"sensitivity"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visiguard",
			Subsystem: "pipeline",
			Name:      "checkpoints_total",
			Help:      "Progress checkpoints written, by stage.",
		}, []string{"stage"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "visiguard",
			Subsystem: "pipeline",
			Name:      "active_jobs",
			Help:      "Jobs currently running.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "visiguard",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "Wall time from submit to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs, m.verdicts, m.checkpoints, m.active, m.duration)
	}
	return m
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) finished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.jobs.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) checkpoint(stage Stage) {
	if m == nil {
		return
	}
	m.checkpoints.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) verdict(s models.Sensitivity) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(string(s)).Inc()
}
