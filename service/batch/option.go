package batch

import (
	"github.com/viant/slotor/runtime/machine"
	"github.com/viant/slotor/service/controller"
	"go.uber.org/zap"
)

// Option configures the Executor
type Option func(*Executor)

// WithConfig sets polling configuration
func WithConfig(config Config) Option {
	return func(e *Executor) {
		e.config = config
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithController sets the harness controller
func WithController(ctrl controller.Controller) Option {
	return func(e *Executor) {
		e.controller = ctrl
	}
}

// WithMachines sets the slot state machines
func WithMachines(machines *machine.Manager) Option {
	return func(e *Executor) {
		e.machines = machines
	}
}
