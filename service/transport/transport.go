// Package transport defines the messages reported to the remote controller
// and an implementation publishing them as typed events.
package transport

import (
	"context"
	"time"

	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/monitor"
)

// Update reports the state and progress of a slot
type Update struct {
	SlotIdx               int               `json:"slot_idx"`
	Status                slot.State        `json:"status"`
	ProcessState          slot.ProcessState `json:"process_state,omitempty"`
	TestName              string            `json:"test_name,omitempty"`
	CurrentLoop           int               `json:"current_loop"`
	TotalLoop             int               `json:"total_loop"`
	CurrentBatch          int               `json:"current_batch"`
	TotalBatch            int               `json:"total_batch"`
	ProgressPercent       float64           `json:"progress_percent"`
	ErrorMessage          string            `json:"error_message,omitempty"`
	EstimatedRemainingSec *int64            `json:"estimated_remaining_sec,omitempty"`
	Timestamp             time.Time         `json:"timestamp"`
}

// ErrorReport reports a failure on a slot
type ErrorReport struct {
	SlotIdx   int       `json:"slot_idx"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Termination reports a harness process that ended unexpectedly
type Termination struct {
	SlotIdx    int            `json:"slot_idx"`
	PID        int            `json:"pid"`
	Reason     monitor.Reason `json:"reason"`
	WasRunning bool           `json:"was_running"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Transport delivers slot reports to the remote controller
type Transport interface {
	SendUpdate(ctx context.Context, update *Update) error
	SendError(ctx context.Context, report *ErrorReport) error
	SendTermination(ctx context.Context, termination *Termination) error
}
