// Package otel configures OpenTelemetry tracing for the bridge process.
package otel

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/toolbridge/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Settings selects whether and where spans are exported.
type Settings struct {
	Enabled     string  `env:"TOOLBRIDGE_OTEL_ENABLED"`
	Endpoint    string  `env:"TOOLBRIDGE_OTEL_ENDPOINT"`
	SampleRatio float64 `env:"TOOLBRIDGE_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether the settings ask for an exporter.
func (s Settings) Active() bool {
	if strings.EqualFold(strings.TrimSpace(s.Enabled), "false") {
		return false
	}
	return strings.TrimSpace(s.Endpoint) != ""
}

// Setup reads Settings from the environment and installs a global tracer
// provider for serviceName. Tracing stays off unless TOOLBRIDGE_OTEL_ENDPOINT
// is set; the returned shutdown flushes pending spans.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	var settings Settings
	if err := config.ParseEnv(&settings); err != nil {
		return noopShutdown, err
	}
	return SetupWith(ctx, serviceName, settings)
}

// SetupWith is Setup with explicit settings.
func SetupWith(ctx context.Context, serviceName string, settings Settings) (func(context.Context) error, error) {
	if !settings.Active() {
		return noopShutdown, nil
	}
	if settings.SampleRatio < 0 || settings.SampleRatio > 1 {
		return noopShutdown, fmt.Errorf("otel sample ratio %v is outside [0, 1]", settings.SampleRatio)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(settings.Endpoint)))
	if err != nil {
		return noopShutdown, fmt.Errorf("create trace exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noopShutdown, fmt.Errorf("build trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return provider.Shutdown, nil
}

func noopShutdown(context.Context) error { return nil }
