package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"eduaudit/internal/config"
	"eduaudit/pkg/contracts"
)

// MeterName is the instrumentation scope of tracers and meters.
const MeterName = "eduaudit"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Metrics        *DomainMetrics
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics. Disabled parts fall back to
// the global no-op providers so callers never check for nil.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	if cfg.ServiceName == "" {
		cfg.ServiceName = config.AppName
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(contracts.Version),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  otel.Meter(MeterName),
	}

	if cfg.TracingEnabled {
		opts := []stdouttrace.Option{}
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(contracts.Version))
		otel.SetTracerProvider(tp)
	}

	if cfg.MetricsEnabled {
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(contracts.Version))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metrics, err := CreateDomainMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	providers.Metrics = metrics

	logger.InfoContext(ctx, "telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.TracingEnabled),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

// DomainMetrics are the counters and histograms recorded by the pipelines.
type DomainMetrics struct {
	PagesFetched     metric.Int64Counter
	FetchDuration    metric.Float64Histogram
	WarningsEmitted  metric.Int64Counter
	RunsTotal        metric.Int64Counter
	RunDuration      metric.Float64Histogram
	WorkbooksWritten metric.Int64Counter
}

// CreateDomainMetrics registers the pipeline instruments on meter.
func CreateDomainMetrics(meter metric.Meter) (*DomainMetrics, error) {
	pages, err := meter.Int64Counter(
		"portal_pages_fetched_total",
		metric.WithDescription("Portal pages fetched"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"portal_fetch_duration_seconds",
		metric.WithDescription("Portal page fetch latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	warnings, err := meter.Int64Counter(
		"audit_warnings_total",
		metric.WithDescription("Warnings produced by the journal rules"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"runs_total",
		metric.WithDescription("Pipeline runs by kind and status"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"run_duration_seconds",
		metric.WithDescription("Pipeline run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	workbooks, err := meter.Int64Counter(
		"workbooks_written_total",
		metric.WithDescription("Spreadsheet files written"),
	)
	if err != nil {
		return nil, err
	}

	return &DomainMetrics{
		PagesFetched:     pages,
		FetchDuration:    fetchDuration,
		WarningsEmitted:  warnings,
		RunsTotal:        runs,
		RunDuration:      runDuration,
		WorkbooksWritten: workbooks,
	}, nil
}

// RecordFetch records one portal page fetch.
func (m *DomainMetrics) RecordFetch(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := attribute.String("status", "ok")
	if err != nil {
		status = attribute.String("status", "error")
	}
	m.PagesFetched.Add(ctx, 1, metric.WithAttributes(status))
	m.FetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
}

// RecordWarnings counts rule findings by rule name.
func (m *DomainMetrics) RecordWarnings(ctx context.Context, rule string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.WarningsEmitted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("rule", rule)))
}

// RecordRun records a finished pipeline run.
func (m *DomainMetrics) RecordRun(ctx context.Context, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", err == nil),
	)
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordWorkbook counts a written file.
func (m *DomainMetrics) RecordWorkbook(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.WorkbooksWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("file", name)))
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the span trace ID for log correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event with string attributes to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
