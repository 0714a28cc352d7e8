package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/tigerroll/recordhub/internal/config"
)

// OtelRecorder records through an OpenTelemetry meter.
type OtelRecorder struct {
	loads          metric.Int64Counter
	loadedRecords  metric.Int64Counter
	units          metric.Int64Counter
	runDuration    metric.Float64Histogram
	runRecords     metric.Int64Counter
	tasksCompleted metric.Int64Counter
}

func NewOtelRecorder(meter metric.Meter) (*OtelRecorder, error) {
	r := &OtelRecorder{}
	var err error
	if r.loads, err = meter.Int64Counter("recordhub.loads", metric.WithDescription("Load attempts.")); err != nil {
		return nil, err
	}
	if r.loadedRecords, err = meter.Int64Counter("recordhub.loaded_records", metric.WithDescription("Records persisted by loads.")); err != nil {
		return nil, err
	}
	if r.units, err = meter.Int64Counter("recordhub.units", metric.WithDescription("Remote write attempts.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("recordhub.run.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.runRecords, err = meter.Int64Counter("recordhub.run.records"); err != nil {
		return nil, err
	}
	if r.tasksCompleted, err = meter.Int64Counter("recordhub.tasks_completed"); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OtelRecorder) RecordLoad(ctx context.Context, kind string, records int, err error) {
	r.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", loadStatus(err))))
	if err == nil {
		r.loadedRecords.Add(ctx, int64(records), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (r *OtelRecorder) RecordUnit(ctx context.Context, kind, outcome string) {
	r.units.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), attribute.String("outcome", outcome)))
}

func (r *OtelRecorder) RecordRun(ctx context.Context, d time.Duration, records int) {
	r.runDuration.Record(ctx, d.Seconds())
	r.runRecords.Add(ctx, int64(records))
}

func (r *OtelRecorder) RecordTaskCompleted(ctx context.Context, kind string) {
	r.tasksCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

var _ Recorder = (*OtelRecorder)(nil)

// newMetricExporter builds the OTLP exporter for metrics.endpoint over metrics.protocol.
func newMetricExporter(ctx context.Context, mc config.MetricsConfig) (sdkmetric.Exporter, error) {
	switch mc.Protocol {
	case "grpc":
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(mc.Endpoint), otlpmetricgrpc.WithInsecure())
	case "", "http":
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(mc.Endpoint), otlpmetrichttp.WithInsecure())
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", mc.Protocol)
}
