package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics instruments scheduled report executions.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
	Jobs     prometheus.Gauge
}

// NewMetrics registers the scheduler collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduled_report_runs_total",
				Help: "Total number of scheduled report executions",
			},
			[]string{"result"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scheduled_report_run_duration_seconds",
				Help:    "Duration of scheduled report executions in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		Jobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scheduled_report_jobs_registered",
				Help: "Number of scheduled report jobs registered with the runner",
			},
		),
	}
}
