package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "chat-gateway"

// Setup installs a global tracer provider exporting to the OTLP/HTTP
// collector at url. url is either host:port or a full http(s) URL.
func Setup(ctx context.Context, url string) (*sdktrace.TracerProvider, error) {
	var opt otlptracehttp.Option
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		opt = otlptracehttp.WithEndpointURL(url)
	} else {
		opt = otlptracehttp.WithEndpoint(url)
	}
	exp, err := otlptracehttp.New(ctx, opt)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}
