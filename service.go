package slotor

import (
	"context"
	"fmt"

	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/runtime/machine"
	"github.com/viant/slotor/service/batch"
	"github.com/viant/slotor/service/command"
	"github.com/viant/slotor/service/controller"
	cmemory "github.com/viant/slotor/service/controller/memory"
	"github.com/viant/slotor/service/dao/snapshot"
	sbolt "github.com/viant/slotor/service/dao/snapshot/bolt"
	sfs "github.com/viant/slotor/service/dao/snapshot/fs"
	smemory "github.com/viant/slotor/service/dao/snapshot/memory"
	"github.com/viant/slotor/service/event"
	"github.com/viant/slotor/service/monitor"
	"github.com/viant/slotor/service/transport"
	"github.com/viant/slotor/service/worker"
	"github.com/viant/slotor/tracing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Version is the agent version reported by default
const Version = "0.1.0"

// Service is the agent container: it owns every component of one agent
// instance and exposes them through Runtime.
type Service struct {
	config      *Config
	logger      *zap.SugaredLogger
	controller  controller.Controller
	pidResolver controller.PIDResolver
	prober      monitor.Prober
	store       snapshot.Store
	events      *event.Service
	transport   transport.Transport
	runtime     *Runtime
	initErrors  []error
}

type pidSource interface {
	PID(slotIdx int) (int, bool)
}

func (s *Service) init(ctx context.Context, options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := multierr.Combine(s.initErrors...); err != nil {
		return err
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.logger == nil {
		logger, err := logging.New(s.config.Logging.Level, s.config.Logging.Format)
		if err != nil {
			return err
		}
		s.logger = logger.With("agent", s.config.Agent.Name)
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Agent.Name, s.config.Agent.Version, s.config.Tracing.Output); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	return s.ensureBaseSetup(ctx)
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	slots := s.config.Slots.Count
	if s.controller == nil {
		s.logger.Warnw("no harness controller configured, using simulator", "slots", slots)
		s.controller = cmemory.New(cmemory.WithMaxSlots(slots))
	}
	if s.pidResolver == nil {
		if src, ok := s.controller.(pidSource); ok {
			s.pidResolver = src.PID
		}
	}
	if s.prober == nil {
		s.prober = monitor.NewProcProber()
	}
	if s.store == nil {
		store, err := newStore(ctx, s.config.Store, s.logger)
		if err != nil {
			return err
		}
		s.store = store
	}
	if s.transport == nil {
		if s.events == nil {
			s.events = event.New(event.WithLogger(s.logger))
		}
		s.transport = transport.NewEventTransport(s.events, s.config.Transport.PublishTimeout)
	}
	decoder, err := command.NewDecoder()
	if err != nil {
		return err
	}

	r := &Runtime{
		logger:      s.logger,
		controller:  s.controller,
		pidResolver: s.pidResolver,
		store:       s.store,
		transport:   s.transport,
		events:      s.events,
		decoder:     decoder,

		reportTimeout: s.config.Transport.PublishTimeout,
	}
	r.machines = machine.NewManager(slots,
		machine.WithLogger(s.logger),
		machine.WithHistoryLimit(s.config.Slots.HistoryLimit),
		machine.WithObserver(r.onTransition))
	r.batch = batch.NewManager(batch.NewExecutor(
		batch.WithConfig(s.config.Batch),
		batch.WithLogger(s.logger),
		batch.WithController(s.controller),
		batch.WithMachines(r.machines)))
	r.pool = worker.New(slots, worker.WithConfig(s.config.Worker), worker.WithLogger(s.logger))
	r.monitor = monitor.New(s.prober,
		monitor.WithInterval(s.config.Monitor.Interval),
		monitor.WithLogger(s.logger),
		monitor.WithTerminationCallback(r.onTermination))
	s.runtime = r
	return nil
}

func newStore(ctx context.Context, config StoreConfig, logger *zap.SugaredLogger) (snapshot.Store, error) {
	switch config.Kind {
	case StoreFS:
		return sfs.New(ctx, config.Path, sfs.WithLogger(logger))
	case StoreBolt:
		return sbolt.New(config.Path)
	default:
		return smemory.New(), nil
	}
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Logger returns the service logger
func (s *Service) Logger() *zap.SugaredLogger {
	return s.logger
}

// Events returns the event service backing the default transport, or nil
// when a custom transport was supplied.
func (s *Service) Events() *event.Service {
	return s.events
}

// Controller returns the harness controller
func (s *Service) Controller() controller.Controller {
	return s.controller
}

// Runtime returns the agent runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates an agent service
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	if err := ret.init(context.Background(), options); err != nil {
		return nil, err
	}
	return ret, nil
}
