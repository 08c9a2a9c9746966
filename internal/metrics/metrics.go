// Package metrics exposes Prometheus instruments for fit runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FitsTotal        *prometheus.CounterVec
	FitDuration      *prometheus.HistogramVec
	EvaluationsTotal *prometheus.CounterVec
	BestFitness      *prometheus.GaugeVec
	QueueDepth       prometheus.Gauge
	RequestsRejected *prometheus.CounterVec
}

// New registers the instruments with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reidentify_fits_total",
				Help: "Total number of finished fit runs",
			},
			[]string{"method", "optimizer", "status"},
		),

		FitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reidentify_fit_duration_seconds",
				Help:    "Wall time of a fit run in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"method", "optimizer"},
		),

		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reidentify_fitness_evaluations_total",
				Help: "Total number of fitness evaluations spent by optimizers",
			},
			[]string{"optimizer"},
		),

		BestFitness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reidentify_fit_best_fitness",
				Help: "Rank distance reached by the most recent completed fit",
			},
			[]string{"method"},
		),

		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reidentify_pending_runs",
				Help: "Number of runs waiting for the runner",
			},
		),

		RequestsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reidentify_requests_rejected_total",
				Help: "Fit requests rejected before queueing",
			},
			[]string{"source"},
		),
	}
}

// RecordFit records one finished run.
func (m *Metrics) RecordFit(method, optimizer, status string, duration time.Duration, evaluations int) {
	m.FitsTotal.WithLabelValues(method, optimizer, status).Inc()
	m.FitDuration.WithLabelValues(method, optimizer).Observe(duration.Seconds())
	if evaluations > 0 {
		m.EvaluationsTotal.WithLabelValues(optimizer).Add(float64(evaluations))
	}
}

func (m *Metrics) RecordFitness(method string, fitness float64) {
	m.BestFitness.WithLabelValues(method).Set(fitness)
}
