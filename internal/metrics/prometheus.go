package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/recordhub/internal/support/logger"
)

// PrometheusRecorder keeps the metrics in its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	loads          *prometheus.CounterVec
	loadedRecords  *prometheus.CounterVec
	units          *prometheus.CounterVec
	runDuration    prometheus.Histogram
	runRecords     prometheus.Counter
	tasksCompleted *prometheus.CounterVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordhub_loads_total",
			Help: "Load attempts by record kind and status.",
		}, []string{"kind", "status"}),
		loadedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordhub_loaded_records_total",
			Help: "Records persisted by successful loads.",
		}, []string{"kind"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordhub_units_total",
			Help: "Remote write attempts by record kind and outcome.",
		}, []string{"kind", "outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recordhub_run_duration_seconds",
			Help:    "Duration of processor runs.",
			Buckets: prometheus.DefBuckets,
		}),
		runRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recordhub_run_records_total",
			Help: "Records picked up by processor runs.",
		}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordhub_tasks_completed_total",
			Help: "Tasks that reached completion.",
		}, []string{"kind"}),
	}
	registry.MustRegister(r.loads, r.loadedRecords, r.units, r.runDuration, r.runRecords, r.tasksCompleted)
	return r
}

// Registry returns the registry the metrics are registered with.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) RecordLoad(_ context.Context, kind string, records int, err error) {
	r.loads.WithLabelValues(kind, loadStatus(err)).Inc()
	if err == nil {
		r.loadedRecords.WithLabelValues(kind).Add(float64(records))
	}
}

func (r *PrometheusRecorder) RecordUnit(_ context.Context, kind, outcome string) {
	r.units.WithLabelValues(kind, outcome).Inc()
}

func (r *PrometheusRecorder) RecordRun(_ context.Context, d time.Duration, records int) {
	r.runDuration.Observe(d.Seconds())
	r.runRecords.Add(float64(records))
	logger.Debugf("Metrics: run of %d record(s) took %.3fs", records, d.Seconds())
}

func (r *PrometheusRecorder) RecordTaskCompleted(_ context.Context, kind string) {
	r.tasksCompleted.WithLabelValues(kind).Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)
