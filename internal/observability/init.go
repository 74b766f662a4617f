package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Sumatoshi-tech/bugmatrix"

// Metric export cadence. A CLI run exports once, on Shutdown; the MCP
// server lives long enough for periodic exports.
const (
	cliExportInterval = time.Hour
	mcpExportInterval = 30 * time.Second
)

// Providers holds the telemetry handles of one process.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// Shutdown flushes spans and metrics, then stops the exporters. Call it
	// once before exit.
	Shutdown func(ctx context.Context) error
}

// flushShutdowner is implemented by the SDK tracer and meter providers.
type flushShutdowner interface {
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Init builds the providers for cfg. Without an OTLP endpoint the tracer and
// meter are no-ops and Shutdown does nothing.
func Init(cfg Config) (Providers, error) {
	logger := NewLogger(cfg)

	if cfg.OTLPEndpoint == "" {
		return Providers{
			Tracer:   nooptrace.NewTracerProvider().Tracer(instrumentationName),
			Meter:    noopmetric.NewMeterProvider().Meter(instrumentationName),
			Logger:   logger,
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	ctx := context.Background()

	spanExporter, err := otlptracegrpc.New(ctx, traceExporterOptions(cfg)...)
	if err != nil {
		return Providers{}, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricExporterOptions(cfg)...)
	if err != nil {
		return Providers{}, errors.Join(
			fmt.Errorf("create metric exporter: %w", err),
			spanExporter.Shutdown(ctx),
		)
	}

	res := runResource(cfg.Run)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(exportInterval(cfg.Run.Mode)))),
		sdkmetric.WithResource(res),
	)

	logger.Debug("telemetry export enabled", "endpoint", cfg.OTLPEndpoint)

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   logger,
		Shutdown: flushAndShutdown(cfg.shutdownTimeout(), tp, mp),
	}, nil
}

// flushAndShutdown flushes every provider before stopping it, all within
// one timeout.
func flushAndShutdown(timeout time.Duration, providers ...flushShutdowner) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		errs := make([]error, 0, 2*len(providers))
		for _, p := range providers {
			errs = append(errs, p.ForceFlush(ctx), p.Shutdown(ctx))
		}

		return errors.Join(errs...)
	}
}

func exportInterval(mode AppMode) time.Duration {
	if mode == ModeMCP {
		return mcpExportInterval
	}

	return cliExportInterval
}

// runResource describes the process and, for report runs, the repository
// and variant, so exported series can be told apart per report.
func runResource(info RunInfo) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceName(info.Service)}

	if info.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(info.Version))
	}

	optional := []struct{ key, value string }{
		{"bugmatrix.mode", string(info.Mode)},
		{"bugmatrix.repository", info.Repository},
		{"bugmatrix.variant", info.Variant},
	}

	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, attribute.String(o.key, o.value))
		}
	}

	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func traceExporterOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}

	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.OTLPHeaders))
	}

	return opts
}

func metricExporterOptions(cfg Config) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}

	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders))
	}

	return opts
}
