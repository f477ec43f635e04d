package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Config configures tracing.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SamplingRate is the fraction of runs traced; <= 0 samples nothing
	// and >= 1 samples everything.
	SamplingRate float64
	// Writer receives the exported spans. Nil writes to stderr.
	Writer      io.Writer
	PrettyPrint bool
}

// DefaultConfig returns a disabled tracing configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "nebulaframe",
		ServiceVersion: "dev",
		SamplingRate:   1.0,
	}
}

// FromConfig builds a tracing configuration from the tracing section.
func FromConfig(cfg config.TracingConfig) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.ServiceName != "" {
		c.ServiceName = cfg.ServiceName
	}
	return c
}

// New builds a tracer that exports spans as JSON to cfg.Writer. A disabled
// config yields a tracer that records nothing.
func New(cfg Config) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}, nil
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}
	return newTracer(cfg, sdktrace.WithBatcher(exporter))
}

// newTracer builds an SDK-backed tracer. Tests pass a span recorder.
func newTracer(cfg Config, opts ...sdktrace.TracerProviderOption) (*Tracer, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create resource")
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	opts = append(opts, sdktrace.WithResource(res), sdktrace.WithSampler(sampler))
	tp := sdktrace.NewTracerProvider(opts...)
	return &Tracer{tracer: tp.Tracer(cfg.ServiceName), provider: tp}, nil
}

// Shutdown flushes pending spans. It is a no-op for disabled tracers.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to shutdown tracer")
	}
	return nil
}

// Enabled reports whether spans are exported.
func (t *Tracer) Enabled() bool {
	return t != nil && t.provider != nil
}
