package slotor

import (
	"github.com/viant/slotor/service/controller"
	"github.com/viant/slotor/service/dao/snapshot"
	"github.com/viant/slotor/service/event"
	"github.com/viant/slotor/service/monitor"
	"github.com/viant/slotor/service/transport"
	"github.com/viant/slotor/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service
type Option func(s *Service)

// WithConfig sets the agent configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the logger; by default one is built from Config.Logging
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithController sets the harness controller
func WithController(ctrl controller.Controller) Option {
	return func(s *Service) {
		s.controller = ctrl
	}
}

// WithPIDResolver sets how harness process ids are found for monitoring
func WithPIDResolver(resolver controller.PIDResolver) Option {
	return func(s *Service) {
		s.pidResolver = resolver
	}
}

// WithProber sets the process liveness prober
func WithProber(prober monitor.Prober) Option {
	return func(s *Service) {
		s.prober = prober
	}
}

// WithStore sets the snapshot store, overriding Config.Store
func WithStore(store snapshot.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithEventService sets the event service backing the default transport
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithTransport sets the transport, overriding the event based default
func WithTransport(t transport.Transport) Option {
	return func(s *Service) {
		s.transport = t
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.initErrors = append(s.initErrors, err)
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.initErrors = append(s.initErrors, err)
		}
	}
}
