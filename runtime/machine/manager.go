package machine

import (
	"errors"
	"fmt"

	"github.com/viant/slotor/model/slot"
)

// ErrUnknownSlot is returned for a slot index outside [0, maxSlots)
var ErrUnknownSlot = errors.New("unknown slot")

// Manager owns exactly one Machine per slot, created at construction
type Manager struct {
	machines []*Machine
}

// Get returns the machine for slotIdx
func (m *Manager) Get(slotIdx int) (*Machine, bool) {
	if slotIdx < 0 || slotIdx >= len(m.machines) {
		return nil, false
	}
	return m.machines[slotIdx], true
}

// Must returns the machine for slotIdx or panics
func (m *Manager) Must(slotIdx int) *Machine {
	ret, ok := m.Get(slotIdx)
	if !ok {
		panic(fmt.Sprintf("%v: %d", ErrUnknownSlot, slotIdx))
	}
	return ret
}

// Len returns the number of slots
func (m *Manager) Len() int {
	return len(m.machines)
}

// Trigger fires event on the slot machine
func (m *Manager) Trigger(slotIdx int, event slot.Event, update *slot.Update, errorMessage string) (slot.State, error) {
	machine, ok := m.Get(slotIdx)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownSlot, slotIdx)
	}
	return machine.Trigger(event, update, errorMessage)
}

// States returns the state of every slot indexed by slot
func (m *Manager) States() map[int]slot.State {
	ret := make(map[int]slot.State, len(m.machines))
	for _, machine := range m.machines {
		ret[machine.slotIdx] = machine.State()
	}
	return ret
}

// BusySlots returns indices of busy slots in ascending order
func (m *Manager) BusySlots() []int {
	return m.filter(func(s slot.State) bool { return s.IsBusy() })
}

// RunningSlots returns indices of running slots in ascending order
func (m *Manager) RunningSlots() []int {
	return m.filter(func(s slot.State) bool { return s == slot.StateRunning })
}

// IdleSlots returns indices of idle slots in ascending order
func (m *Manager) IdleSlots() []int {
	return m.filter(func(s slot.State) bool { return s == slot.StateIdle })
}

// ResetAll forces every non-idle machine back to idle
func (m *Manager) ResetAll(reason string) {
	for _, machine := range m.machines {
		if !machine.IsIdle() {
			machine.Force(slot.StateIdle, reason)
		}
	}
}

// Snapshot returns snapshots of all machines ordered by slot
func (m *Manager) Snapshot() []slot.Snapshot {
	ret := make([]slot.Snapshot, 0, len(m.machines))
	for _, machine := range m.machines {
		ret = append(ret, machine.Snapshot())
	}
	return ret
}

func (m *Manager) filter(predicate func(slot.State) bool) []int {
	var ret []int
	for _, machine := range m.machines {
		if predicate(machine.State()) {
			ret = append(ret, machine.slotIdx)
		}
	}
	return ret
}

// NewManager creates maxSlots machines sharing the supplied options
func NewManager(maxSlots int, options ...Option) *Manager {
	if maxSlots < 0 {
		maxSlots = 0
	}
	ret := &Manager{machines: make([]*Machine, maxSlots)}
	for i := 0; i < maxSlots; i++ {
		ret.machines[i] = New(i, options...)
	}
	return ret
}
