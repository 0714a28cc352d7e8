package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// NewRecorder selects the recorder named by metrics.type and registers the
// lifecycle hooks it needs: the /metrics endpoint for prometheus, the exporter flush for otel.
func NewRecorder(lc fx.Lifecycle, cfg *config.Config) (Recorder, error) {
	mc := cfg.RecordHub.Metrics
	switch mc.Type {
	case "prometheus":
		r := NewPrometheusRecorder()
		if mc.Addr != "" {
			serveMetrics(lc, mc.Addr, r.Handler())
		}
		return r, nil
	case "otel":
		exp, err := newMetricExporter(context.Background(), mc)
		if err != nil {
			return nil, err
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		lc.Append(fx.Hook{OnStop: mp.Shutdown})
		logger.Infof("Exporting metrics to %s over %s.", mc.Endpoint, mc.Protocol)
		return NewOtelRecorder(mp.Meter(TracerName))
	}
	return NewNoopRecorder(), nil
}

func serveMetrics(lc fx.Lifecycle, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("Metrics endpoint stopped: %v", err)
				}
			}()
			logger.Infof("Serving metrics on %s/metrics.", addr)
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

// NewTracer returns the tracer used by processor spans.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (trace.Tracer, error) {
	tp, shutdown, err := NewTracerProvider(context.Background(), cfg.RecordHub.Tracing)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return tp.Tracer(TracerName), nil
}

// Module provides the Recorder and the trace.Tracer.
var Module = fx.Options(
	fx.Provide(NewRecorder),
	fx.Provide(NewTracer),
)
