// Package tracing records OpenTelemetry spans for gateway commands and
// analysis requests. Spans go to Langfuse over OTLP/HTTP when its keys are
// in the environment; without them every wrapper is a pass-through.
package tracing

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	scope       = "github.com/Zerofisher/pktdash"
	defaultHost = "cloud.langfuse.com"
	tracesPath  = "/api/public/otel/v1/traces"

	// maxAttrLen bounds prompt and completion previews on a span.
	maxAttrLen = 500
)

// ServiceVersion is reported as the resource service.version.
var ServiceVersion = "dev"

var (
	once     sync.Once
	provider *sdktrace.TracerProvider
	enabled  bool
)

// exporter is where spans are shipped.
type exporter struct {
	host string
	auth string
}

// langfuseFromEnv reads LANGFUSE_PUBLIC_KEY, LANGFUSE_SECRET_KEY and
// LANGFUSE_HOST. ok is false when either key is missing.
func langfuseFromEnv() (exporter, bool) {
	pub, sec := os.Getenv("LANGFUSE_PUBLIC_KEY"), os.Getenv("LANGFUSE_SECRET_KEY")
	if pub == "" || sec == "" {
		return exporter{}, false
	}
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}
	for _, scheme := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, scheme)
	}
	return exporter{
		host: strings.TrimRight(host, "/"),
		auth: "Basic " + base64.StdEncoding.EncodeToString([]byte(pub+":"+sec)),
	}, true
}

// Init installs the Langfuse exporter if it is configured. Only the first
// call has an effect.
func Init(ctx context.Context) error {
	var err error
	once.Do(func() {
		exp, ok := langfuseFromEnv()
		if !ok {
			return
		}
		err = start(ctx, exp)
	})
	return err
}

func start(ctx context.Context, exp exporter) error {
	client, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(exp.host),
		otlptracehttp.WithURLPath(tracesPath),
		otlptracehttp.WithHeaders(map[string]string{"Authorization": exp.auth}),
	)
	if err != nil {
		return err
	}
	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(client),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("pktdash"),
			semconv.ServiceVersion(ServiceVersion),
		)),
	)
	otel.SetTracerProvider(provider)
	enabled = true
	return nil
}

func tracer() trace.Tracer {
	if provider != nil {
		return provider.Tracer(scope)
	}
	return otel.Tracer(scope)
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// attrText makes s safe for a span attribute: invalid UTF-8 is replaced,
// since OTLP rejects it, and the result is cut to maxAttrLen bytes on a rune
// boundary.
func attrText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	if len(s) <= maxAttrLen {
		return s
	}
	n := maxAttrLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
