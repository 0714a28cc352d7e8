package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tigerroll/recordhub/internal/config"
)

func TestPrometheusRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewPrometheusRecorder()

	r.RecordLoad(ctx, "funding", 3, nil)
	r.RecordLoad(ctx, "funding", 0, errors.New("bad header"))
	r.RecordUnit(ctx, "funding", OutcomeCreated)
	r.RecordUnit(ctx, "funding", OutcomeCreated)
	r.RecordUnit(ctx, "funding", OutcomeFailed)
	r.RecordRun(ctx, 250*time.Millisecond, 4)
	r.RecordTaskCompleted(ctx, "funding")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.loads.WithLabelValues("funding", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.loads.WithLabelValues("funding", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.loadedRecords.WithLabelValues("funding")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.units.WithLabelValues("funding", OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("funding", OutcomeFailed)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.runRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksCompleted.WithLabelValues("funding")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recordhub_units_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOtelRecorder(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := NewOtelRecorder(mp.Meter("test"))
	require.NoError(t, err)

	r.RecordUnit(ctx, "work", OutcomeUpdated)
	r.RecordUnit(ctx, "work", OutcomeUpdated)
	r.RecordRun(ctx, time.Second, 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	found := map[string]metricdata.Aggregation{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		found[m.Name] = m.Data
	}
	units, ok := found["recordhub.units"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, units.DataPoints, 1)
	assert.Equal(t, int64(2), units.DataPoints[0].Value)
	assert.Contains(t, found, "recordhub.run.duration")
}

func TestNoopRecorder(t *testing.T) {
	r := NewNoopRecorder()
	assert.NotPanics(t, func() {
		r.RecordLoad(context.Background(), "work", 1, nil)
		r.RecordRun(context.Background(), time.Second, 1)
	})
}

func TestNewTracerProviderWithoutEndpoint(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	_, span := tp.Tracer(TracerName).Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewTracerProviderRejectsProtocol(t *testing.T) {
	_, _, err := NewTracerProvider(context.Background(), config.TracingConfig{Endpoint: "localhost:4318", Protocol: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestSpansAreRecorded(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	_, span := tp.Tracer(TracerName).Start(context.Background(), "processor.run")
	span.End()
	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "processor.run", sr.Ended()[0].Name())
}
