package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/config"
	"github.com/swcolombo/waitlist-api/pkg/logger"
)

var tracer trace.Tracer

// InitTracer installs an OTLP/HTTP tracer provider as the global provider and
// returns its shutdown func. With no exporter endpoint tracing stays off and
// spans are no-ops.
func InitTracer(cfg *config.Config) (func(context.Context) error, error) {
	o11y := cfg.Observability
	if o11y.ExporterEndpoint == "" {
		logger.Info("Tracing disabled: O11Y_EXPORTER_ENDPOINT not set")
		return func(context.Context) error { return nil }, nil
	}

	logger.Info("Initializing OpenTelemetry tracer",
		zap.String("service", o11y.ServiceName),
		zap.String("endpoint", o11y.ExporterEndpoint))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(o11y.ExporterEndpoint),
		otlptracehttp.WithInsecure(), // collector sits on the internal network
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// low traffic: small batches, flushed quickly
	bsp := sdktrace.NewBatchSpanProcessor(exporter,
		sdktrace.WithBatchTimeout(2*time.Second),
		sdktrace.WithExportTimeout(5*time.Second),
		sdktrace.WithMaxQueueSize(512),
		sdktrace.WithMaxExportBatchSize(128),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bsp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = tp.Tracer(o11y.ServiceName)

	return tp.Shutdown, nil
}

// resourceAttributes describes this service; empty values are left out
func resourceAttributes(cfg *config.Config) []attribute.KeyValue {
	o11y := cfg.Observability
	attrs := []attribute.KeyValue{semconv.ServiceName(o11y.ServiceName)}
	if o11y.ServiceNamespace != "" {
		attrs = append(attrs, semconv.ServiceNamespace(o11y.ServiceNamespace))
	}
	if o11y.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(o11y.ServiceVersion))
	}
	if o11y.ServiceInstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(o11y.ServiceInstanceID))
	}
	if cfg.Server.AppEnv != "" {
		attrs = append(attrs, attribute.String("deployment.environment.name", cfg.Server.AppEnv))
	}
	return attrs
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		// no-op span until InitTracer ran
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// InjectHeaders propagates the span in ctx onto outgoing request headers
func InjectHeaders(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}
