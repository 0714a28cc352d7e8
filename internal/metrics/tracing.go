package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// TracerName names the tracer used by recordhub spans.
const TracerName = "github.com/tigerroll/recordhub"

func newSpanExporter(ctx context.Context, tc config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch tc.Protocol {
	case "grpc":
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(tc.Endpoint), otlptracegrpc.WithInsecure())
	case "", "http":
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(tc.Endpoint), otlptracehttp.WithInsecure())
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", tc.Protocol)
}

// NewTracerProvider exports spans over OTLP when tracing.endpoint is set. Otherwise spans are dropped.
// The returned shutdown flushes pending spans.
func NewTracerProvider(ctx context.Context, tc config.TracingConfig) (trace.TracerProvider, func(context.Context) error, error) {
	if tc.Endpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}
	exp, err := newSpanExporter(ctx, tc)
	if err != nil {
		return nil, nil, err
	}
	res := resource.NewSchemaless(attribute.String("service.name", tc.ServiceName))
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	logger.Infof("Exporting traces to %s over %s.", tc.Endpoint, tc.Protocol)
	return tp, tp.Shutdown, nil
}
