package slot

// Transition is a single (from, event) -> to row of the transition table
type Transition struct {
	From  State
	Event Event
	To    State
}

// Transitions is the authoritative transition table. Any (state, event) pair
// that is not listed here is rejected.
var Transitions = []Transition{
	{StateIdle, EventConnect, StateConnecting},
	{StateIdle, EventStartTest, StatePreparing},
	{StateIdle, EventReset, StateIdle},

	{StateConnecting, EventConnected, StateReady},
	{StateConnecting, EventConnectionFailed, StateError},
	{StateConnecting, EventDisconnected, StateIdle},

	{StateReady, EventStartTest, StatePreparing},
	{StateReady, EventDisconnected, StateIdle},
	{StateReady, EventReset, StateIdle},

	{StatePreparing, EventConfigure, StateConfiguring},
	{StatePreparing, EventFail, StateFailed},
	{StatePreparing, EventError, StateError},
	{StatePreparing, EventStop, StateStopping},

	{StateConfiguring, EventConfigured, StateReady},
	{StateConfiguring, EventRun, StateRunning},
	{StateConfiguring, EventFail, StateFailed},
	{StateConfiguring, EventError, StateError},
	{StateConfiguring, EventStop, StateStopping},

	{StateRunning, EventPause, StatePaused},
	{StateRunning, EventStop, StateStopping},
	{StateRunning, EventComplete, StateCompleted},
	{StateRunning, EventFail, StateFailed},
	{StateRunning, EventError, StateError},
	{StateRunning, EventDisconnected, StateError},
	{StateRunning, EventBatchComplete, StateRunning},
	{StateRunning, EventBatchNext, StateRunning},
	{StateRunning, EventAllBatchesDone, StateCompleted},

	{StatePaused, EventResume, StateRunning},
	{StatePaused, EventStop, StateStopping},
	{StatePaused, EventError, StateError},

	{StateStopping, EventStopped, StateIdle},
	{StateStopping, EventError, StateError},

	{StateCompleted, EventReset, StateIdle},
	{StateCompleted, EventStartTest, StatePreparing},

	{StateFailed, EventReset, StateIdle},
	{StateFailed, EventRetry, StatePreparing},
	{StateFailed, EventStartTest, StatePreparing},

	{StateError, EventReset, StateIdle},
	{StateError, EventRetry, StateIdle},
	{StateError, EventStartTest, StatePreparing},
}

type transitionKey struct {
	from  State
	event Event
}

var transitionTable = func() map[transitionKey]State {
	ret := make(map[transitionKey]State, len(Transitions))
	for _, t := range Transitions {
		ret[transitionKey{t.From, t.Event}] = t.To
	}
	return ret
}()

// Lookup returns the target state for (from, event)
func Lookup(from State, event Event) (State, bool) {
	to, ok := transitionTable[transitionKey{from, event}]
	return to, ok
}

// ValidEvents returns events accepted in the supplied state, in table order
func ValidEvents(from State) []Event {
	var ret []Event
	for _, t := range Transitions {
		if t.From == from {
			ret = append(ret, t.Event)
		}
	}
	return ret
}
