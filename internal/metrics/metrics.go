// Package metrics exposes pipeline counters in Prometheus format. The
// registry is process-local; bulk mode optionally serves it over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the pipeline's instrument set backed by one registry.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal      *prometheus.CounterVec
	AttemptsTotal  *prometheus.CounterVec
	OutputBytes    prometheus.Histogram
	JobDurationSec prometheus.Histogram
}

// New creates and registers the instrument set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotlight_jobs_total",
			Help: "Jobs finished, by terminal status.",
		}, []string{"status"}),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotlight_encode_attempts_total",
			Help: "Encode attempts run, by ladder stage.",
		}, []string{"stage"}),
		OutputBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotlight_output_bytes",
			Help:    "Final artifact sizes in bytes.",
			Buckets: prometheus.ExponentialBuckets(256*1024, 2, 10),
		}),
		JobDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotlight_job_duration_seconds",
			Help:    "Wall-clock time per job.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	m.registry.MustRegister(m.JobsTotal, m.AttemptsTotal, m.OutputBytes, m.JobDurationSec)
	return m
}

// ObserveJob records a finished job.
func (m *Metrics) ObserveJob(status string, durationSeconds float64, outputBytes int64) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDurationSec.Observe(durationSeconds)
	if outputBytes > 0 {
		m.OutputBytes.Observe(float64(outputBytes))
	}
}

// ObserveAttempt records one encode attempt.
func (m *Metrics) ObserveAttempt(stage string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(stage).Inc()
}

// Handler serves the registry in the exposition format negotiated from
// the request's Accept header.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		families, err := m.registry.Gather()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		format := expfmt.Negotiate(r.Header)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return
			}
		}
	})
}
