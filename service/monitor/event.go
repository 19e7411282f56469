package monitor

import (
	"context"
	"time"
)

// Reason describes why a watched process ended
type Reason string

const (
	ReasonUserTerminated Reason = "user_terminated"
	ReasonProcessCrashed Reason = "process_crashed"
	ReasonAccessDenied   Reason = "access_denied"
	ReasonUnknown        Reason = "unknown"
)

// TerminationEvent reports a watched process that ended
type TerminationEvent struct {
	SlotIdx    int       `json:"slotIdx"`
	PID        int       `json:"pid"`
	Reason     Reason    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
	WasRunning bool      `json:"wasRunning"`
}

// TerminationCallback is invoked once per terminated process
type TerminationCallback func(ctx context.Context, event TerminationEvent)
