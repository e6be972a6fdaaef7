// Package telemetry wires OpenTelemetry tracing for runners and the server.
//
// Setup installs a global tracer provider that exports spans to a writer
// (stdout by default) through the stdouttrace exporter. Without Setup the
// global no-op provider is used and spans cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the default tracer name.
const InstrumentationName = "github.com/seobando/agentkit"

// Options configures Setup.
type Options struct {
	ServiceName    string
	ServiceVersion string
	// Writer receives exported spans. Defaults to stdout.
	Writer io.Writer
	// PrettyPrint indents exported JSON.
	PrettyPrint bool
	// Sync exports each span as it ends instead of batching.
	Sync bool
}

// Setup installs a tracer provider and returns its shutdown function.
func Setup(ctx context.Context, optFns ...func(o *Options)) (func(context.Context) error, error) {
	opts := Options{ServiceName: "agentkit", ServiceVersion: "dev", PrettyPrint: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	var exporterOpts []stdouttrace.Option
	if opts.PrettyPrint {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	if opts.Writer != nil {
		exporterOpts = append(exporterOpts, stdouttrace.WithWriter(opts.Writer))
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	spanOpt := sdktrace.WithBatcher(exporter)
	if opts.Sync {
		spanOpt = sdktrace.WithSyncer(exporter)
	}
	provider := sdktrace.NewTracerProvider(
		spanOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = InstrumentationName
	}
	return otel.Tracer(name)
}

// Span attribute keys.
var (
	AttrAppName      = attribute.Key("agentkit.app_name")
	AttrUserID       = attribute.Key("agentkit.user_id")
	AttrSessionID    = attribute.Key("agentkit.session_id")
	AttrInvocationID = attribute.Key("agentkit.invocation_id")
	AttrAgentName    = attribute.Key("agentkit.agent")
	AttrEventCount   = attribute.Key("agentkit.events")
)
