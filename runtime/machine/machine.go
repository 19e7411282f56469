package machine

import (
	"fmt"
	"sync"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/model/slot"
	"go.uber.org/zap"
)

// Machine is the lifecycle state machine of a single slot. It is safe for
// concurrent use; all readers receive copies.
type Machine struct {
	slotIdx      int
	mux          sync.Mutex
	state        slot.State
	context      slot.Context
	history      []Record
	historyLimit int
	observer     Observer
	logger       *zap.SugaredLogger

	// observers are called in commit order: a change takes a ticket while
	// holding mux and waits for its turn after releasing it
	notifyMux  sync.Mutex
	notifyCond *sync.Cond
	ticket     uint64
	turn       uint64
}

// SlotIdx returns the slot index
func (m *Machine) SlotIdx() int {
	return m.slotIdx
}

// State returns the current state
func (m *Machine) State() slot.State {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.state
}

// Context returns a copy of the current context
func (m *Machine) Context() slot.Context {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.context
}

// History returns a copy of the transition history, oldest first
func (m *Machine) History() []Record {
	m.mux.Lock()
	defer m.mux.Unlock()
	ret := make([]Record, len(m.history))
	copy(ret, m.history)
	return ret
}

// CanTransition returns true if event is accepted in the current state
func (m *Machine) CanTransition(event slot.Event) bool {
	_, ok := slot.Lookup(m.State(), event)
	return ok
}

// ValidEvents returns events accepted in the current state
func (m *Machine) ValidEvents() []slot.Event {
	return slot.ValidEvents(m.State())
}

// IsIdle returns true when the slot accepts a new test
func (m *Machine) IsIdle() bool { return m.State() == slot.StateIdle }

// IsTerminal returns true in completed, failed and error
func (m *Machine) IsTerminal() bool { return m.State().IsTerminal() }

// IsBusy returns true while a test occupies the slot
func (m *Machine) IsBusy() bool { return m.State().IsBusy() }

// IsRunning returns true while the harness executes a batch
func (m *Machine) IsRunning() bool { return m.State() == slot.StateRunning }

// Trigger applies event to the machine. The optional update is merged into
// the context; a non-empty errorMessage is recorded and counted.
// On an invalid (state, event) pair the machine is left unchanged.
func (m *Machine) Trigger(event slot.Event, update *slot.Update, errorMessage string) (slot.State, error) {
	m.mux.Lock()
	from := m.state
	to, ok := slot.Lookup(from, event)
	if !ok {
		m.mux.Unlock()
		err := &slot.InvalidTransitionError{State: from, Event: event, SlotIdx: m.slotIdx}
		m.logger.Warnw("invalid transition", "slot", m.slotIdx, "state", from, "event", event)
		return from, err
	}

	now := clock.Now()
	switch event {
	case slot.EventReset, slot.EventStopped:
		m.context = slot.NewContext(m.slotIdx)
	default:
		next := m.context.Merge(update)
		if event == slot.EventStartTest {
			next.StartedAt = &now
			if from.IsTerminal() {
				next.ErrorMessage = ""
				next.ErrorCount = 0
				next.RetryCount = 0
				next.CurrentLoop = 0
			}
		}
		if errorMessage != "" {
			next.ErrorMessage = errorMessage
			next.ErrorCount++
		}
		m.context = next
	}
	m.state = to
	m.appendHistory(Record{Time: now, From: from, Event: event, To: to})
	observer := m.observer
	ticket := m.nextTicket()
	m.mux.Unlock()

	m.logger.Infow("state transition", "slot", m.slotIdx, "from", from, "event", event, "to", to)
	m.notify(ticket, observer, from, to)
	return to, nil
}

// Force moves the machine to state bypassing the transition table. It is
// meant for recovery paths only; the history record carries Forced and the
// reason instead of an event.
func (m *Machine) Force(state slot.State, reason string) {
	m.mux.Lock()
	from := m.state
	m.state = state
	if state == slot.StateIdle {
		m.context = slot.NewContext(m.slotIdx)
	}
	m.appendHistory(Record{Time: clock.Now(), From: from, To: state, Forced: true, Reason: reason})
	observer := m.observer
	ticket := m.nextTicket()
	m.mux.Unlock()

	m.logger.Warnw("forced state change", "slot", m.slotIdx, "from", from, "to", state, "reason", reason)
	m.notify(ticket, observer, from, state)
}

// Annotate merges update into the context without changing the state
func (m *Machine) Annotate(update *slot.Update) slot.Context {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.context = m.context.Merge(update)
	return m.context
}

// Snapshot returns a serialisable view of the machine
func (m *Machine) Snapshot() slot.Snapshot {
	m.mux.Lock()
	state := m.state
	ctx := m.context
	m.mux.Unlock()
	return slot.Snapshot{
		SlotIdx:         m.slotIdx,
		State:           state,
		IsBusy:          state.IsBusy(),
		IsRunning:       state == slot.StateRunning,
		ValidEvents:     slot.ValidEvents(state),
		Context:         ctx,
		ProgressPercent: ctx.ProgressPercent(),
		CapturedAt:      clock.Now(),
	}
}

// nextTicket must be called with mux held
func (m *Machine) nextTicket() uint64 {
	ret := m.ticket
	m.ticket++
	return ret
}

// notify waits until every earlier change was observed, so observers never
// see transitions out of commit order. Observers must not change the same
// machine synchronously.
func (m *Machine) notify(ticket uint64, observer Observer, from, to slot.State) {
	m.notifyMux.Lock()
	for m.turn != ticket {
		m.notifyCond.Wait()
	}
	defer func() {
		m.turn++
		m.notifyCond.Broadcast()
		m.notifyMux.Unlock()
	}()
	if observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorw("state observer panicked", "slot", m.slotIdx, "from", from, "to", to, "panic", fmt.Sprint(r))
		}
	}()
	observer(m.slotIdx, from, to)
}

// New creates a machine for slotIdx
func New(slotIdx int, options ...Option) *Machine {
	ret := &Machine{
		slotIdx:      slotIdx,
		state:        slot.StateIdle,
		context:      slot.NewContext(slotIdx),
		historyLimit: defaultHistoryLimit,
		logger:       logging.Nop(),
	}
	ret.notifyCond = sync.NewCond(&ret.notifyMux)
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
