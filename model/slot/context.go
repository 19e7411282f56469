package slot

import (
	"time"

	"github.com/viant/slotor/internal/clock"
)

// Context carries the runtime data of the operation a slot is performing.
// It is a value type: every change produces a new Context via Merge, so a
// reader holding a copy never observes a partially applied update.
type Context struct {
	SlotIdx        int          `json:"slotIdx" yaml:"slotIdx"`
	TestID         string       `json:"testId,omitempty" yaml:"testId,omitempty"`
	RunID          string       `json:"runId,omitempty" yaml:"runId,omitempty"`
	TestName       string       `json:"testName,omitempty" yaml:"testName,omitempty"`
	ProcessState   ProcessState `json:"processState" yaml:"processState"`
	TestPhase      string       `json:"testPhase,omitempty" yaml:"testPhase,omitempty"`
	CurrentLoop    int          `json:"currentLoop" yaml:"currentLoop"`
	TotalLoop      int          `json:"totalLoop" yaml:"totalLoop"`
	LoopStep       int          `json:"loopStep" yaml:"loopStep"`
	CurrentBatch   int          `json:"currentBatch" yaml:"currentBatch"`
	TotalBatch     int          `json:"totalBatch" yaml:"totalBatch"`
	IsPrecondition bool         `json:"isPrecondition" yaml:"isPrecondition"`
	StartedAt      *time.Time   `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	UpdatedAt      time.Time    `json:"updatedAt" yaml:"updatedAt"`
	ErrorMessage   string       `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	ErrorCount     int          `json:"errorCount" yaml:"errorCount"`
	RetryCount     int          `json:"retryCount" yaml:"retryCount"`
}

// Update describes a partial context change; nil fields are left untouched.
type Update struct {
	TestID         *string
	RunID          *string
	TestName       *string
	ProcessState   *ProcessState
	TestPhase      *string
	CurrentLoop    *int
	TotalLoop      *int
	LoopStep       *int
	CurrentBatch   *int
	TotalBatch     *int
	IsPrecondition *bool
	StartedAt      *time.Time
	ErrorMessage   *string
	ErrorCount     *int
	RetryCount     *int
}

// Ptr returns a pointer to v, handy for building an Update literal.
func Ptr[T any](v T) *T {
	return &v
}

// NewContext returns the default context of a slot
func NewContext(slotIdx int) Context {
	return Context{
		SlotIdx:      slotIdx,
		ProcessState: ProcessIdle,
		UpdatedAt:    clock.Now(),
	}
}

// Merge returns a copy of c with all non-nil fields of u applied
func (c Context) Merge(u *Update) Context {
	ret := c
	ret.UpdatedAt = clock.Now()
	if u == nil {
		return ret
	}
	if u.TestID != nil {
		ret.TestID = *u.TestID
	}
	if u.RunID != nil {
		ret.RunID = *u.RunID
	}
	if u.TestName != nil {
		ret.TestName = *u.TestName
	}
	if u.ProcessState != nil {
		ret.ProcessState = *u.ProcessState
	}
	if u.TestPhase != nil {
		ret.TestPhase = *u.TestPhase
	}
	if u.CurrentLoop != nil {
		ret.CurrentLoop = *u.CurrentLoop
	}
	if u.TotalLoop != nil {
		ret.TotalLoop = *u.TotalLoop
	}
	if u.LoopStep != nil {
		ret.LoopStep = *u.LoopStep
	}
	if u.CurrentBatch != nil {
		ret.CurrentBatch = *u.CurrentBatch
	}
	if u.TotalBatch != nil {
		ret.TotalBatch = *u.TotalBatch
	}
	if u.IsPrecondition != nil {
		ret.IsPrecondition = *u.IsPrecondition
	}
	if u.StartedAt != nil {
		startedAt := *u.StartedAt
		ret.StartedAt = &startedAt
	}
	if u.ErrorMessage != nil {
		ret.ErrorMessage = *u.ErrorMessage
	}
	if u.ErrorCount != nil {
		ret.ErrorCount = *u.ErrorCount
	}
	if u.RetryCount != nil {
		ret.RetryCount = *u.RetryCount
	}
	return ret
}

// ProgressPercent returns CurrentLoop/TotalLoop as a percentage (0..100)
func (c Context) ProgressPercent() float64 {
	if c.TotalLoop <= 0 {
		return 0
	}
	return float64(c.CurrentLoop) / float64(c.TotalLoop) * 100
}
