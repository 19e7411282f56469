package slot

import "time"

// Snapshot is a serialisable, point-in-time view of a slot
type Snapshot struct {
	SlotIdx         int       `json:"slotIdx" yaml:"slotIdx"`
	State           State     `json:"state" yaml:"state"`
	IsBusy          bool      `json:"isBusy" yaml:"isBusy"`
	IsRunning       bool      `json:"isRunning" yaml:"isRunning"`
	ValidEvents     []Event   `json:"validEvents" yaml:"validEvents"`
	Context         Context   `json:"context" yaml:"context"`
	ProgressPercent float64   `json:"progressPercent" yaml:"progressPercent"`
	CapturedAt      time.Time `json:"capturedAt" yaml:"capturedAt"`
}
