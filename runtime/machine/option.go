package machine

import (
	"github.com/viant/slotor/model/slot"
	"go.uber.org/zap"
)

// Observer is notified after a transition has been committed
type Observer func(slotIdx int, from, to slot.State)

// Option configures a Machine
type Option func(*Machine)

// WithObserver sets the state change observer
func WithObserver(observer Observer) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithInitialState overrides the starting state (idle by default)
func WithInitialState(state slot.State) Option {
	return func(m *Machine) {
		m.state = state
	}
}

// WithHistoryLimit sets the history cap; once exceeded the history is trimmed
// to the newest half.
func WithHistoryLimit(limit int) Option {
	return func(m *Machine) {
		if limit > 1 {
			m.historyLimit = limit
		}
	}
}
