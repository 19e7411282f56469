package monitor

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Monitor
type Option func(*Monitor)

// WithInterval sets the check interval
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTerminationCallback sets the termination callback
func WithTerminationCallback(fn TerminationCallback) Option {
	return func(m *Monitor) {
		m.callback = fn
	}
}
