// Package metrics exposes queue lifecycle counters and gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the queue's prometheus instruments. A nil *Metrics is valid
// and records nothing, so wiring stays optional.
type Metrics struct {
	submitted prometheus.Counter
	finished  *prometheus.CounterVec
	queued    prometheus.Gauge
	running   prometheus.Gauge
}

// New registers the queue metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "fetcharr_jobs_submitted_total",
			Help: "Jobs accepted into the download queue.",
		}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetcharr_jobs_finished_total",
			Help: "Jobs that reached a terminal state, by status.",
		}, []string{"status"}),
		queued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fetcharr_jobs_queued",
			Help: "Jobs waiting for a worker slot.",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fetcharr_jobs_running",
			Help: "Jobs currently transferring.",
		}),
	}
}

// JobsSubmitted records n accepted jobs.
func (m *Metrics) JobsSubmitted(n int) {
	if m == nil {
		return
	}
	m.submitted.Add(float64(n))
}

// JobFinished records one terminal job.
func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(status).Inc()
}

// SetQueued updates the queued gauge.
func (m *Metrics) SetQueued(n int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(n))
}

// SetRunning updates the running gauge.
func (m *Metrics) SetRunning(n int) {
	if m == nil {
		return
	}
	m.running.Set(float64(n))
}
