// Package progress keeps per-run batch counters. The tracker instance can
// travel in the execution context so that every component receiving the
// context can read the latest snapshot without a global registry.

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/model/slot"
)

// Batch is an immutable progress snapshot of a batch run
type Batch struct {
	SlotIdx            int               `json:"slotIdx"`
	CurrentBatch       int               `json:"currentBatch"`
	TotalBatch         int               `json:"totalBatch"`
	CurrentLoop        int               `json:"currentLoop"`
	TotalLoop          int               `json:"totalLoop"`
	LoopStep           int               `json:"loopStep"`
	ProgressPercent    float64           `json:"progressPercent"`
	StartedAt          time.Time         `json:"startedAt"`
	EstimatedRemaining *time.Duration    `json:"estimatedRemaining,omitempty"`
	ProcessState       slot.ProcessState `json:"processState,omitempty"`
}

// Tracker derives Batch snapshots for one run. It is safe for concurrent use.
type Tracker struct {
	slotIdx    int
	totalLoop  int
	loopStep   int
	totalBatch int
	startedAt  time.Time

	sync.Mutex
	completed int
	elapsed   time.Duration
	status    slot.ProcessState
	last      Batch
	onChange  func(Batch)
}

// NewTracker creates a tracker for totalLoop iterations executed loopStep at a time
func NewTracker(slotIdx, totalLoop, loopStep int) *Tracker {
	if loopStep <= 0 {
		loopStep = 1
	}
	totalBatch := 0
	if totalLoop > 0 {
		totalBatch = (totalLoop + loopStep - 1) / loopStep
	}
	return &Tracker{
		slotIdx:    slotIdx,
		totalLoop:  totalLoop,
		loopStep:   loopStep,
		totalBatch: totalBatch,
		startedAt:  clock.Now(),
	}
}

// TotalBatch returns ceil(totalLoop/loopStep)
func (t *Tracker) TotalBatch() int {
	return t.totalBatch
}

// Before returns the snapshot emitted before batch b (1-based) starts:
// CurrentLoop = (b-1)*loopStep.
func (t *Tracker) Before(b int) Batch {
	return t.emit(b, (b-1)*t.loopStep, false, 0)
}

// After records the duration of batch b and returns the post-batch snapshot
// with CurrentLoop = min(b*loopStep, totalLoop).
func (t *Tracker) After(b int, took time.Duration) Batch {
	loop := b * t.loopStep
	if loop > t.totalLoop {
		loop = t.totalLoop
	}
	return t.emit(b, loop, true, took)
}

// Status records the latest harness status. A snapshot carrying it is
// emitted only when the status differs from the previous one.
func (t *Tracker) Status(state slot.ProcessState) (Batch, bool) {
	t.Lock()
	if t.status == state {
		ret := t.last
		t.Unlock()
		return ret, false
	}
	t.status = state
	t.last.ProcessState = state
	if t.last.TotalBatch == 0 {
		t.last.SlotIdx = t.slotIdx
		t.last.TotalBatch = t.totalBatch
		t.last.TotalLoop = t.totalLoop
		t.last.LoopStep = t.loopStep
		t.last.StartedAt = t.startedAt
	}
	ret := t.last
	cb := t.onChange
	t.Unlock()
	if cb != nil {
		cb(ret)
	}
	return ret, true
}

// Snapshot returns the last emitted snapshot
func (t *Tracker) Snapshot() Batch {
	if t == nil {
		return Batch{}
	}
	t.Lock()
	defer t.Unlock()
	return t.last
}

// OnChange registers a callback invoked after every emitted snapshot.
// Passing nil disables the callback.
func (t *Tracker) OnChange(cb func(Batch)) {
	if t == nil {
		return
	}
	t.Lock()
	t.onChange = cb
	t.Unlock()
}

func (t *Tracker) emit(b, loop int, done bool, took time.Duration) Batch {
	t.Lock()
	if done {
		t.completed++
		t.elapsed += took
	}
	ret := Batch{
		SlotIdx:      t.slotIdx,
		CurrentBatch: b,
		TotalBatch:   t.totalBatch,
		CurrentLoop:  loop,
		TotalLoop:    t.totalLoop,
		LoopStep:     t.loopStep,
		StartedAt:    t.startedAt,
		ProcessState: t.status,
	}
	if t.totalLoop > 0 {
		ret.ProgressPercent = float64(loop) / float64(t.totalLoop) * 100
	}
	if t.completed > 0 {
		remaining := t.totalBatch - t.completed
		if remaining < 0 {
			remaining = 0
		}
		eta := t.elapsed / time.Duration(t.completed) * time.Duration(remaining)
		ret.EstimatedRemaining = &eta
	}
	t.last = ret
	cb := t.onChange
	t.Unlock()
	if cb != nil {
		cb(ret)
	}
	return ret
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds tracker in a derived context
func WithTracker(ctx context.Context, tracker *Tracker) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the Tracker from ctx
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Tracker)
	return tr, ok
}

// GetSnapshot combines FromContext and Snapshot
func GetSnapshot(ctx context.Context) (Batch, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Batch{}, false
}
