package otelx

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Config struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string // host:port, e.g. jaeger:4317
	SampleRatio  float64
}

// ConfigFromEnv reads OTEL_ENABLED, OTEL_EXPORTER_OTLP_ENDPOINT,
// OTEL_SAMPLING_RATIO and DEPLOY_ENV. A ratio outside [0,1] falls back to 1.
func ConfigFromEnv(serviceName string) Config {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(config.String("OTEL_SAMPLING_RATIO", "1")), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		ratio = 1
	}
	return Config{
		Enabled:      config.Bool("OTEL_ENABLED", true),
		ServiceName:  serviceName,
		Environment:  config.String("DEPLOY_ENV", "local"),
		OTLPEndpoint: strings.TrimSpace(config.String("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317")),
		SampleRatio:  ratio,
	}
}

// Setup installs the global propagators and, when enabled, an OTLP tracer
// provider. The returned func flushes spans on shutdown.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(3*time.Second),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
