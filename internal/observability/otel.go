// Package observability sets up OpenTelemetry tracing for the complaint
// service. HTTP spans come from otelgin, database spans from the gorm
// tracing plugin, and the service layer opens its own spans per operation;
// all of them share the provider installed here.
package observability

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/HussamZG/shakaoy-650/internal/config"
)

// Deployment describes which backends this instance runs against. The
// values become resource attributes so traces from a SQLite/local dev box
// are distinguishable from a Postgres/S3/Redis deployment.
type Deployment struct {
	DBDriver       string
	StorageDriver  string
	RealtimeDriver string
}

// DeploymentOf reads the backend drivers from cfg.
func DeploymentOf(cfg config.Config) Deployment {
	return Deployment{
		DBDriver:       cfg.DB.Driver,
		StorageDriver:  cfg.Storage.Driver,
		RealtimeDriver: cfg.Realtime.Driver,
	}
}

func (d Deployment) attributes() []attribute.KeyValue {
	var kv []attribute.KeyValue
	if d.DBDriver != "" {
		kv = append(kv, semconv.DBSystemKey.String(d.DBDriver))
	}
	if d.StorageDriver != "" {
		kv = append(kv, attribute.String("complaints.storage.driver", d.StorageDriver))
	}
	if d.RealtimeDriver != "" {
		kv = append(kv, attribute.String("complaints.realtime.driver", d.RealtimeDriver))
	}
	return kv
}

// Test seams.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, serviceName, version string, extra ...attribute.KeyValue) (*resource.Resource, error) {
		attrs := []attribute.KeyValue{
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		}
		if host, err := os.Hostname(); err == nil && host != "" {
			attrs = append(attrs, semconv.ServiceInstanceID(host))
		}
		return resource.New(ctx, resource.WithAttributes(append(attrs, extra...)...))
	}
)

// sampleRatio clamps r to [0, 1].
func sampleRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// SetupOTel installs the global tracer provider and W3C propagators and
// returns its shutdown func. When tracing is disabled both are no-ops and
// the globals are left untouched. Exporter errors are routed to the
// process logger.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string, dep Deployment) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := newServiceResourceFn(ctx, cfg.ServiceName, version, dep.attributes()...)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, err
	}

	ratio := sampleRatio(cfg.SampleRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warn().Err(err).Str("component", "otel").Msg("telemetry export failed")
	}))

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Float64("sample_ratio", ratio).
		Str("db", dep.DBDriver).
		Str("storage", dep.StorageDriver).
		Str("realtime", dep.RealtimeDriver).
		Msg("tracing enabled")

	return tp.Shutdown, nil
}
