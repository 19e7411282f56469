package slot

import "fmt"

// InvalidTransitionError is returned when an event is not accepted in the
// current state. The state of the slot is left unchanged.
type InvalidTransitionError struct {
	State   State
	Event   Event
	SlotIdx int
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s + %s (slot %d)", e.State, e.Event, e.SlotIdx)
}
