// Package jobmetrics instruments asynq task handlers.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the job collectors.
type Metrics struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	documents *prometheus.CounterVec
	docBytes  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Tracker times one task execution.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the outcome and returns err unchanged. Errors wrapping
// asynq.SkipRetry count as skipped since the task will not run again.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	t.metrics.runs.WithLabelValues(t.job, Outcome(err)).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Outcome classifies a handler error into a status label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, asynq.SkipRetry):
		return StatusSkipped
	default:
		return StatusFailure
	}
}

// AddDocument counts one generated document of kind and its size.
func (m *Metrics) AddDocument(kind string, size int64) {
	if m == nil || kind == "" {
		return
	}
	m.documents.WithLabelValues(kind).Inc()
	if size > 0 {
		m.docBytes.WithLabelValues(kind).Add(float64(size))
	}
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Name:      "jobs_total",
			Help:      "Task executions by task type and outcome.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agency",
			Name:      "job_duration_seconds",
			Help:      "Task execution time by task type.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Name:      "documents_generated_total",
			Help:      "Generated documents by kind.",
		}, []string{"kind"}),
		docBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Name:      "documents_bytes_total",
			Help:      "Bytes of generated documents by kind.",
		}, []string{"kind"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.documents, m.docBytes)
	return m
}
