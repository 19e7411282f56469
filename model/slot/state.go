package slot

// State represents the high-level lifecycle state of a slot
type State string

const (
	StateIdle        State = "idle"
	StateConnecting  State = "connecting"
	StateReady       State = "ready"
	StatePreparing   State = "preparing"
	StateConfiguring State = "configuring"
	StateRunning     State = "running"
	StatePaused      State = "paused"
	StateStopping    State = "stopping"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateError       State = "error"
)

// States lists every slot state in declaration order.
var States = []State{
	StateIdle, StateConnecting, StateReady, StatePreparing, StateConfiguring,
	StateRunning, StatePaused, StateStopping, StateCompleted, StateFailed, StateError,
}

// IsTerminal returns true for completed, failed and error.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateError:
		return true
	}
	return false
}

// IsBusy returns true when the slot is doing work, that is it is neither idle
// nor in a terminal state.
func (s State) IsBusy() bool {
	return s != StateIdle && !s.IsTerminal()
}

func (s State) String() string {
	return string(s)
}
