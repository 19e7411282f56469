package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/viant/slotor"
	slotKey    = attribute.Key("slot.idx")
)

var (
	mux      sync.Mutex
	provider *sdktrace.TracerProvider
	output   io.Closer
)

// Init installs a tracer provider exporting spans as JSON to outputFile, or
// to stdout when outputFile is empty. Only the first call has an effect.
func Init(serviceName, serviceVersion, outputFile string) error {
	mux.Lock()
	defer mux.Unlock()
	if provider != nil {
		return nil
	}
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create trace output %s: %w", outputFile, err)
		}
		w = f
		output = f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return install(serviceName, serviceVersion, exporter)
}

// InitWithExporter installs a tracer provider using exporter. Only the first
// call has an effect.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	mux.Lock()
	defer mux.Unlock()
	if provider != nil {
		return nil
	}
	return install(serviceName, serviceVersion, exporter)
}

func install(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	res, err := resource.New(context.Background(), resource.WithAttributes(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	))
	if err != nil {
		return err
	}
	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return nil
}

// Shutdown flushes the installed provider and closes the trace output file
func Shutdown(ctx context.Context) error {
	mux.Lock()
	defer mux.Unlock()
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	if output != nil {
		if cErr := output.Close(); err == nil {
			err = cErr
		}
		output = nil
	}
	return err
}

// Span is a traced operation on a slot. A nil *Span is a no-op.
type Span struct {
	span trace.Span
}

// SetInt records an integer attribute
func (s *Span) SetInt(key string, value int) *Span {
	if s != nil {
		s.span.SetAttributes(attribute.Int(key, value))
	}
	return s
}

// SetString records a string attribute
func (s *Span) SetString(key, value string) *Span {
	if s != nil {
		s.span.SetAttributes(attribute.String(key, value))
	}
	return s
}

// End marks the span failed when err is not nil and ends it
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// Start starts a span named name for slotIdx as a child of the span in ctx
func Start(ctx context.Context, name string, slotIdx int) (context.Context, *Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(slotKey.Int(slotIdx)))
	return ctx, &Span{span: span}
}

// FromContext returns the recording span carried by ctx
func FromContext(ctx context.Context) (*Span, bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil, false
	}
	return &Span{span: span}, true
}
