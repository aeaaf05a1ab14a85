package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder records compute pipeline metrics using Prometheus.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	fetchesTotal *prometheus.CounterVec
	rowsWritten  *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
}

// New creates a recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmcompute_runs_total",
				Help: "Total number of compute runs by final status",
			},
			[]string{"status"},
		),
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmcompute_fetches_total",
				Help: "Total number of market data fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmcompute_rows_written_total",
				Help: "Total number of result rows written by table",
			},
			[]string{"table"},
		),
		stageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mmcompute_stage_duration_seconds",
				Help:    "Duration of compute run stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
	reg.MustRegister(r.runsTotal, r.fetchesTotal, r.rowsWritten, r.stageLatency)
	return r
}

// RecordRun records a finished run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// ObserveFetch records a provider fetch outcome.
func (r *Recorder) ObserveFetch(source, outcome string) {
	r.fetchesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordRows records rows written to a result table.
func (r *Recorder) RecordRows(table string, n int) {
	r.rowsWritten.WithLabelValues(table).Add(float64(n))
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}
