package slot

// Event triggers a state transition
type Event string

const (
	// connection events
	EventConnect          Event = "connect"
	EventConnected        Event = "connected"
	EventDisconnected     Event = "disconnected"
	EventConnectionFailed Event = "connection_failed"

	// test lifecycle events
	EventStartTest  Event = "start_test"
	EventConfigure  Event = "configure"
	EventConfigured Event = "configured"
	EventRun        Event = "run"
	EventPause      Event = "pause"
	EventResume     Event = "resume"
	EventStop       Event = "stop"
	EventStopped    Event = "stopped"

	// result events
	EventComplete Event = "complete"
	EventFail     Event = "fail"
	EventError    Event = "error"

	// recovery events
	EventReset Event = "reset"
	EventRetry Event = "retry"

	// batch events
	EventBatchComplete  Event = "batch_complete"
	EventBatchNext      Event = "batch_next"
	EventAllBatchesDone Event = "all_batches_done"
)

// Events lists every slot event in declaration order.
var Events = []Event{
	EventConnect, EventConnected, EventDisconnected, EventConnectionFailed,
	EventStartTest, EventConfigure, EventConfigured, EventRun, EventPause, EventResume,
	EventStop, EventStopped, EventComplete, EventFail, EventError, EventReset, EventRetry,
	EventBatchComplete, EventBatchNext, EventAllBatchesDone,
}

func (e Event) String() string {
	return string(e)
}
