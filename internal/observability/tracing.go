package observability

import (
	"context"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig selects the OTLP/HTTP collector spans are exported to.
type TracingConfig struct {
	// Endpoint is a collector URL such as http://localhost:4318. Empty
	// disables export.
	Endpoint    string
	ServiceName string
}

// SetupTracing installs a batching OTLP tracer provider and the W3C trace
// context propagator as the otel globals, and returns the provider.
//
// With no endpoint nothing is installed: the returned provider is the
// current global and shutdown does nothing. The caller defers shutdown to
// flush pending spans.
func SetupTracing(ctx context.Context, cfg TracingConfig) (trace.TracerProvider, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return otel.GetTracerProvider(), noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, noop, oops.Code("OBSERVABILITY_TRACING_FAILED").With("endpoint", cfg.Endpoint).Wrap(err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "truckbook"
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", name)))
	if err != nil {
		return nil, noop, oops.Code("OBSERVABILITY_TRACING_FAILED").Wrap(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, tp.Shutdown, nil
}
