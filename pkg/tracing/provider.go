package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/pkg/logger"
)

var Module = fx.Module("tracing",
	fx.Invoke(Setup),
)

// Setup installs a global TracerProvider exporting via OTLP/HTTP when an
// endpoint is configured. Without an endpoint the global no-op provider stays
// in place and tracing.Start calls cost nothing.
func Setup(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) error {
	if !cfg.Otel.Enabled() {
		return nil
	}
	log = log.With(logger.Scope("tracing"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Otel.ExporterEndpoint),
	)
	if err != nil {
		return fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Otel.ServiceName),
	))
	if err != nil {
		return fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Otel.SamplingRate)),
	)
	otel.SetTracerProvider(tp)

	log.Info("tracing enabled",
		slog.String("endpoint", cfg.Otel.ExporterEndpoint),
		slog.String("service", cfg.Otel.ServiceName),
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return nil
}
