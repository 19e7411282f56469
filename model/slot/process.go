package slot

// ProcessState is the coarse status of the harness driving a slot, as
// reported by the controller adapter. The orchestration core never looks at
// raw UI text, only at these values.
type ProcessState string

const (
	ProcessIdle       ProcessState = "idle"
	ProcessInProgress ProcessState = "in_progress"
	ProcessPass       ProcessState = "pass"
	ProcessFail       ProcessState = "fail"
	ProcessStop       ProcessState = "stop"
	ProcessUnknown    ProcessState = "unknown"
)

// IsTerminal returns true for pass, fail and stop.
func (p ProcessState) IsTerminal() bool {
	return p == ProcessPass || p == ProcessFail || p == ProcessStop
}
