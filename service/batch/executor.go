package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/model/test"
	"github.com/viant/slotor/progress"
	"github.com/viant/slotor/runtime/machine"
	"github.com/viant/slotor/service/controller"
	"github.com/viant/slotor/tracing"
	"go.uber.org/zap"
)

// ProgressFunc receives progress snapshots; it is awaited before the run
// continues and snapshots are delivered in order.
type ProgressFunc func(ctx context.Context, p progress.Batch) error

type outcome int

const (
	outcomePass outcome = iota
	outcomeFail
	outcomeStopped
	outcomeCancelled
	outcomeTimeout
)

func (o outcome) String() string {
	switch o {
	case outcomePass:
		return "pass"
	case outcomeFail:
		return "fail"
	case outcomeStopped:
		return "stop"
	case outcomeCancelled:
		return "cancelled"
	case outcomeTimeout:
		return "timeout"
	}
	return "unknown"
}

// Executor runs batch tests on slots
type Executor struct {
	config     Config
	controller controller.Controller
	machines   *machine.Manager
	logger     *zap.SugaredLogger
	cancels    sync.Map // slotIdx -> *atomic.Bool
}

// RequestCancel asks the run on slotIdx to stop at the next check point
func (e *Executor) RequestCancel(slotIdx int) {
	e.flag(slotIdx).Store(true)
	e.logger.Infow("cancel requested", "slot", slotIdx)
}

// IsCancelRequested returns true when cancellation was requested for slotIdx
func (e *Executor) IsCancelRequested(slotIdx int) bool {
	return e.flag(slotIdx).Load()
}

// ClearCancel resets the cancellation flag of slotIdx
func (e *Executor) ClearCancel(slotIdx int) {
	e.flag(slotIdx).Store(false)
}

func (e *Executor) flag(slotIdx int) *atomic.Bool {
	if v, ok := e.cancels.Load(slotIdx); ok {
		return v.(*atomic.Bool)
	}
	v, _ := e.cancels.LoadOrStore(slotIdx, &atomic.Bool{})
	return v.(*atomic.Bool)
}

// Execute runs every batch of cfg on slotIdx and returns true once all
// batches completed. The slot is expected to be in the configuring state.
func (e *Executor) Execute(ctx context.Context, slotIdx int, cfg *test.Config, onProgress ProgressFunc) bool {
	m, ok := e.machines.Get(slotIdx)
	if !ok {
		e.logger.Errorw("batch execution rejected", "slot", slotIdx, "error", machine.ErrUnknownSlot)
		return false
	}
	if cfg == nil || cfg.LoopCount < 1 || cfg.LoopStep < 1 {
		e.logger.Errorw("batch execution rejected", "slot", slotIdx, "error", ErrInvalidConfig)
		if m.CanTransition(slot.EventError) {
			_, _ = m.Trigger(slot.EventError, nil, ErrInvalidConfig.Error())
		}
		return false
	}
	ctx, span := tracing.Start(ctx, "batch.execute", slotIdx)
	span.SetInt("loop_count", cfg.LoopCount).SetInt("loop_step", cfg.LoopStep).SetString("test_id", cfg.TestID)

	ok, err := e.execute(ctx, m, cfg, onProgress)
	if err != nil {
		e.logger.Errorw("batch execution error", "slot", slotIdx, "error", err)
		if m.CanTransition(slot.EventError) {
			_, _ = m.Trigger(slot.EventError, nil, err.Error())
		}
		ok = false
	}
	spanErr := err
	if spanErr == nil && !ok {
		spanErr = errors.New("batch run did not complete")
	}
	span.End(spanErr)
	return ok
}

func (e *Executor) execute(ctx context.Context, m *machine.Machine, cfg *test.Config, onProgress ProgressFunc) (bool, error) {
	slotIdx := m.SlotIdx()
	tracker := progress.NewTracker(slotIdx, cfg.LoopCount, cfg.LoopStep)
	total := tracker.TotalBatch()
	tracker.OnChange(func(p progress.Batch) {
		e.report(ctx, slotIdx, onProgress, p)
	})
	ctx = progress.WithTracker(ctx, tracker)
	e.ClearCancel(slotIdx)
	e.logger.Infow("starting batch execution", "slot", slotIdx, "totalLoop", cfg.LoopCount, "loopStep", cfg.LoopStep, "totalBatch", total)

	m.Annotate(&slot.Update{
		TotalLoop:    slot.Ptr(cfg.LoopCount),
		LoopStep:     slot.Ptr(cfg.LoopStep),
		TotalBatch:   slot.Ptr(total),
		CurrentBatch: slot.Ptr(0),
		CurrentLoop:  slot.Ptr(0),
	})

	if pre := cfg.PreconditionConfig(); pre != nil {
		ok, err := e.precondition(ctx, m, pre)
		if err != nil || !ok {
			return false, err
		}
	}

	for b := 1; b <= total; b++ {
		if e.cancelled(ctx, slotIdx) {
			return false, e.abort(ctx, m, fmt.Sprintf("cancelled before batch %d", b))
		}
		m.Annotate(&slot.Update{
			CurrentBatch: slot.Ptr(b),
			CurrentLoop:  slot.Ptr((b - 1) * cfg.LoopStep),
		})
		tracker.Before(b)
		e.logger.Infow("executing batch", "slot", slotIdx, "batch", b, "totalBatch", total)

		started := clock.Now()
		result, reason, err := e.runBatch(ctx, m, cfg, b)
		if err != nil {
			return false, err
		}
		switch result {
		case outcomePass:
		case outcomeCancelled:
			return false, e.abort(ctx, m, fmt.Sprintf("cancelled during batch %d", b))
		default:
			if m.State() == slot.StateStopping {
				e.logger.Infow("batch stopped", "slot", slotIdx, "batch", b)
				return false, nil
			}
			message := fmt.Sprintf("batch %d failed: %s", b, reason)
			e.logger.Errorw("batch failed", "slot", slotIdx, "batch", b, "reason", reason)
			if m.CanTransition(slot.EventFail) {
				_, err = m.Trigger(slot.EventFail, nil, message)
			}
			return false, err
		}

		took := clock.Since(started)
		loop := min(b*cfg.LoopStep, cfg.LoopCount)
		if _, err = m.Trigger(slot.EventBatchComplete, &slot.Update{CurrentLoop: slot.Ptr(loop)}, ""); err != nil {
			return false, err
		}
		next := slot.EventBatchNext
		if b == total {
			next = slot.EventAllBatchesDone
		}
		if _, err = m.Trigger(next, nil, ""); err != nil {
			return false, err
		}
		tracker.After(b, took)
	}
	e.logger.Infow("all batches completed", "slot", slotIdx, "totalBatch", total)
	return true, nil
}

// runBatch starts (b == 1) or continues the harness and waits for the batch
// to finish. A harness refusal is reported as a failed outcome.
func (e *Executor) runBatch(ctx context.Context, m *machine.Machine, cfg *test.Config, b int) (outcome, string, error) {
	ctx, span := tracing.Start(ctx, "batch.run", m.SlotIdx())
	span.SetInt("batch", b)
	result, reason, err := e.startAndWait(ctx, m, b == 1, cfg)
	spanErr := err
	if spanErr == nil && result != outcomePass {
		spanErr = errors.New(reason)
	}
	span.End(spanErr)
	return result, reason, err
}

func (e *Executor) startAndWait(ctx context.Context, m *machine.Machine, fullStart bool, cfg *test.Config) (outcome, string, error) {
	slotIdx := m.SlotIdx()
	var ok bool
	var err error
	if fullStart {
		ok, err = e.controller.Start(ctx, slotIdx, cfg)
	} else {
		ok, err = e.controller.ContinueBatch(ctx, slotIdx)
	}
	if err != nil {
		e.logger.Errorw("harness command failed", "slot", slotIdx, "fullStart", fullStart, "error", err)
	}
	if err != nil || !ok {
		if e.cancelled(ctx, slotIdx) {
			return outcomeCancelled, "cancelled", nil
		}
		if fullStart {
			return outcomeFail, "start failed", nil
		}
		return outcomeFail, "continue failed", nil
	}
	switch m.State() {
	case slot.StateRunning:
	case slot.StateStopping:
		return outcomeCancelled, "cancelled", nil
	default:
		if _, err = m.Trigger(slot.EventRun, nil, ""); err != nil {
			return outcomeFail, "", err
		}
	}
	result := e.waitForTerminal(ctx, m)
	return result, result.String(), nil
}

func (e *Executor) precondition(ctx context.Context, m *machine.Machine, pre *test.Config) (bool, error) {
	slotIdx := m.SlotIdx()
	ctx, span := tracing.Start(ctx, "batch.precondition", slotIdx)
	span.SetString("method", pre.Method)
	m.Annotate(&slot.Update{IsPrecondition: slot.Ptr(true)})
	e.logger.Infow("running precondition", "slot", slotIdx, "method", pre.Method, "capacity", pre.Capacity)

	result, reason, err := e.startAndWait(ctx, m, true, pre)
	if err != nil {
		span.End(err)
		return false, err
	}
	switch result {
	case outcomePass:
		m.Annotate(&slot.Update{IsPrecondition: slot.Ptr(false)})
		span.End(nil)
		return true, nil
	case outcomeCancelled:
		span.End(errors.New(reason))
		return false, e.abort(ctx, m, "cancelled during precondition")
	}
	span.End(errors.New(reason))
	if m.State() == slot.StateStopping {
		return false, nil
	}
	e.logger.Errorw("precondition failed", "slot", slotIdx, "reason", reason)
	if m.CanTransition(slot.EventFail) {
		_, err = m.Trigger(slot.EventFail, nil, "precondition failed")
	}
	return false, err
}

// waitForTerminal polls the harness until it reports a terminal status.
// A terminal status is only accepted after in_progress has been observed, so
// a stale result of the previous batch is never taken for the current one.
// Every status change is recorded on the machine and emitted as progress.
func (e *Executor) waitForTerminal(ctx context.Context, m *machine.Machine) outcome {
	slotIdx := m.SlotIdx()
	deadline := clock.Now().Add(e.config.PassTimeout)
	tracker, _ := progress.FromContext(ctx)
	span, _ := tracing.FromContext(ctx)
	last := m.Context().ProcessState
	var inProgressAt *time.Time
	for {
		if e.cancelled(ctx, slotIdx) {
			return outcomeCancelled
		}
		if clock.Now().After(deadline) {
			e.logger.Errorw("timeout waiting for batch to finish", "slot", slotIdx, "timeout", e.config.PassTimeout)
			return outcomeTimeout
		}
		status, err := e.controller.ReadStatus(ctx, slotIdx)
		if err != nil {
			e.logger.Debugw("failed to read harness status", "slot", slotIdx, "error", err)
			status = slot.ProcessUnknown
		}
		if status != last {
			e.logger.Debugw("harness status changed", "slot", slotIdx, "from", last, "to", status)
			last = status
			m.Annotate(&slot.Update{ProcessState: &status})
			span.SetString("process_state", string(status))
			if tracker != nil {
				tracker.Status(status)
			}
		}
		switch status {
		case slot.ProcessInProgress:
			if inProgressAt == nil {
				now := clock.Now()
				inProgressAt = &now
			}
		case slot.ProcessPass:
			if inProgressAt != nil && clock.Since(*inProgressAt) >= e.config.MinPassDuration {
				e.logger.Debugw("pass detected", "slot", slotIdx)
				return outcomePass
			}
		case slot.ProcessFail:
			if inProgressAt != nil {
				e.logger.Warnw("fail detected", "slot", slotIdx)
				return outcomeFail
			}
		case slot.ProcessStop:
			if inProgressAt != nil {
				e.logger.Infow("stop detected", "slot", slotIdx)
				return outcomeStopped
			}
		}
		if err := clock.Sleep(ctx, e.config.PollInterval); err != nil {
			return outcomeCancelled
		}
	}
}

// abort stops the harness and moves the slot to stopping
func (e *Executor) abort(ctx context.Context, m *machine.Machine, reason string) error {
	slotIdx := m.SlotIdx()
	if p, ok := progress.GetSnapshot(ctx); ok {
		e.logger.Infow("batch execution cancelled", "slot", slotIdx, "reason", reason, "batch", p.CurrentBatch, "currentLoop", p.CurrentLoop)
	} else {
		e.logger.Infow("batch execution cancelled", "slot", slotIdx, "reason", reason)
	}
	if _, err := e.controller.Stop(context.WithoutCancel(ctx), slotIdx); err != nil {
		e.logger.Errorw("failed to stop harness", "slot", slotIdx, "error", err)
	}
	if m.CanTransition(slot.EventStop) {
		_, err := m.Trigger(slot.EventStop, nil, "")
		return err
	}
	return nil
}

func (e *Executor) cancelled(ctx context.Context, slotIdx int) bool {
	return e.IsCancelRequested(slotIdx) || ctx.Err() != nil
}

func (e *Executor) report(ctx context.Context, slotIdx int, onProgress ProgressFunc, p progress.Batch) {
	if onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("progress callback panicked", "slot", slotIdx, "panic", fmt.Sprint(r))
		}
	}()
	if err := onProgress(ctx, p); err != nil {
		e.logger.Warnw("progress callback failed", "slot", slotIdx, "batch", p.CurrentBatch, "error", err)
	}
}

// NewExecutor creates an executor
func NewExecutor(options ...Option) *Executor {
	ret := &Executor{
		config: DefaultConfig(),
		logger: logging.Nop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.machines == nil {
		ret.machines = machine.NewManager(0)
	}
	return ret
}
