package slotor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/internal/idgen"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/model/test"
	"github.com/viant/slotor/progress"
	"github.com/viant/slotor/runtime/machine"
	"github.com/viant/slotor/service/batch"
	"github.com/viant/slotor/service/command"
	"github.com/viant/slotor/service/controller"
	"github.com/viant/slotor/service/dao"
	"github.com/viant/slotor/service/dao/snapshot"
	"github.com/viant/slotor/service/event"
	"github.com/viant/slotor/service/monitor"
	"github.com/viant/slotor/service/transport"
	"github.com/viant/slotor/service/worker"
	"github.com/viant/slotor/tracing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when a slot task could not be queued
var ErrQueueFull = errors.New("slot queue full")

// Error codes reported through the transport
const (
	ErrorCodeFailed = "test_failed"
	ErrorCodeError  = "slot_error"
)

// Runtime wires slot machines, batch execution, the worker pool, the
// process monitor and the transport of one agent.
type Runtime struct {
	logger      *zap.SugaredLogger
	controller  controller.Controller
	pidResolver controller.PIDResolver
	machines    *machine.Manager
	batch       *batch.Manager
	pool        *worker.Pool
	monitor     *monitor.Monitor
	store       snapshot.Store
	transport   transport.Transport
	events      *event.Service
	decoder     *command.Decoder
	// reportTimeout bounds a blocking report enqueue
	reportTimeout time.Duration
}

// Start starts the worker pool and the process monitor and persists the
// initial snapshot of every slot.
func (r *Runtime) Start(ctx context.Context) error {
	r.pool.Start(ctx)
	r.monitor.Start(ctx)
	for _, snap := range r.machines.Snapshot() {
		snap := snap
		if err := r.store.Save(ctx, &snap); err != nil {
			r.logger.Errorw("failed to persist slot snapshot", "slot", snap.SlotIdx, "error", err)
		}
	}
	r.logger.Infow("agent runtime started", "slots", r.machines.Len())
	return nil
}

// Shutdown cancels active runs, stops background workers and releases
// resources. Errors of every step are aggregated.
func (r *Runtime) Shutdown(ctx context.Context) error {
	for _, slotIdx := range r.machines.BusySlots() {
		r.batch.Cancel(slotIdx)
	}
	r.monitor.Stop()
	r.pool.Stop()
	var err error
	if r.events != nil {
		if n := r.events.DeadLetters(); n > 0 {
			r.logger.Warnw("events dead-lettered", "count", n)
		}
		r.events.Close()
	}
	if closer, ok := r.store.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	err = multierr.Append(err, tracing.Shutdown(ctx))
	r.logger.Infow("agent runtime stopped", "error", err)
	return err
}

// Machines returns the slot machines
func (r *Runtime) Machines() *machine.Manager {
	return r.machines
}

// Batch returns the batch manager
func (r *Runtime) Batch() *batch.Manager {
	return r.batch
}

// Monitor returns the process monitor
func (r *Runtime) Monitor() *monitor.Monitor {
	return r.monitor
}

// Pool returns the worker pool
func (r *Runtime) Pool() *worker.Pool {
	return r.pool
}

// Store returns the snapshot store
func (r *Runtime) Store() snapshot.Store {
	return r.store
}

// Slots returns a snapshot of every slot
func (r *Runtime) Slots() []slot.Snapshot {
	return r.machines.Snapshot()
}

// Slot returns the persisted snapshot of slotIdx
func (r *Runtime) Slot(ctx context.Context, slotIdx int) (*slot.Snapshot, error) {
	return r.store.Load(ctx, slotIdx)
}

// SlotsByState lists persisted snapshots in any of states
func (r *Runtime) SlotsByState(ctx context.Context, states ...slot.State) ([]*slot.Snapshot, error) {
	values := make([]string, len(states))
	for i, s := range states {
		values[i] = string(s)
	}
	return r.store.List(ctx, dao.NewParameter(dao.ParameterState, values...))
}

// StartTest moves slotIdx through preparing and configuring and queues the
// batch run on the slot worker.
func (r *Runtime) StartTest(ctx context.Context, slotIdx int, cfg *test.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config was nil", test.ErrInvalidConfig)
	}
	cfg.Init()
	if err := cfg.Validate(); err != nil {
		return err
	}
	m, ok := r.machines.Get(slotIdx)
	if !ok {
		return fmt.Errorf("%w: %d", machine.ErrUnknownSlot, slotIdx)
	}
	if r.batch.IsRunning(slotIdx) {
		return fmt.Errorf("%w: slot %d", batch.ErrAlreadyRunning, slotIdx)
	}
	if cfg.TestID == "" {
		cfg.TestID = idgen.New()
	}
	runID := idgen.RunID(slotIdx)
	update := &slot.Update{
		TestID:    slot.Ptr(cfg.TestID),
		RunID:     slot.Ptr(runID),
		TestName:  slot.Ptr(cfg.TestName),
		TotalLoop: slot.Ptr(cfg.LoopCount),
		LoopStep:  slot.Ptr(cfg.LoopStep),
	}
	if _, err := m.Trigger(slot.EventStartTest, update, ""); err != nil {
		return err
	}
	if _, err := m.Trigger(slot.EventConfigure, nil, ""); err != nil {
		return err
	}
	task := func(ctx context.Context) error {
		return r.runTest(ctx, m, runID, cfg)
	}
	if !r.pool.EnqueueSlot(ctx, slotIdx, "batch_test", task, worker.PriorityNormal, false) {
		err := fmt.Errorf("%w: %d", ErrQueueFull, slotIdx)
		if m.CanTransition(slot.EventError) {
			_, _ = m.Trigger(slot.EventError, nil, err.Error())
		}
		return err
	}
	r.logger.Infow("test queued", "slot", slotIdx, "runId", runID, "testId", cfg.TestID, "loopCount", cfg.LoopCount, "loopStep", cfg.LoopStep)
	return nil
}

func (r *Runtime) runTest(ctx context.Context, m *machine.Machine, runID string, cfg *test.Config) error {
	slotIdx := m.SlotIdx()
	snapshot := m.Snapshot()
	if snapshot.State != slot.StateConfiguring || snapshot.Context.RunID != runID {
		r.logger.Infow("test skipped", "slot", slotIdx, "runId", runID, "state", snapshot.State, "activeRunId", snapshot.Context.RunID)
		r.finishStop(m)
		return nil
	}
	onProgress := func(ctx context.Context, p progress.Batch) error {
		r.sendProgress(ctx, m, p)
		return nil
	}
	ok, err := r.batch.Run(ctx, slotIdx, cfg, onProgress)
	if err != nil {
		return err
	}
	r.finishStop(m)
	r.logger.Infow("test finished", "slot", slotIdx, "runId", runID, "passed", ok, "state", m.State())
	return nil
}

// finishStop completes a stop request once no run is active
func (r *Runtime) finishStop(m *machine.Machine) {
	if m.State() != slot.StateStopping || r.batch.IsRunning(m.SlotIdx()) {
		return
	}
	var invalid *slot.InvalidTransitionError
	if _, err := m.Trigger(slot.EventStopped, nil, ""); err != nil && !errors.As(err, &invalid) {
		r.logger.Errorw("failed to complete stop", "slot", m.SlotIdx(), "error", err)
	}
}

// StopTest requests the slot to stop. The harness is stopped from the top
// queue; the slot returns to idle once the active run, if any, has ended.
func (r *Runtime) StopTest(ctx context.Context, slotIdx int) error {
	m, ok := r.machines.Get(slotIdx)
	if !ok {
		return fmt.Errorf("%w: %d", machine.ErrUnknownSlot, slotIdx)
	}
	if m.State() != slot.StateStopping {
		if !m.CanTransition(slot.EventStop) {
			_, err := m.Trigger(slot.EventStop, nil, "")
			return err
		}
		r.batch.Executor().RequestCancel(slotIdx)
		if _, err := m.Trigger(slot.EventStop, nil, ""); err != nil {
			return err
		}
	}
	task := func(ctx context.Context) error {
		if !r.batch.Stop(ctx, slotIdx) {
			r.logger.Warnw("harness did not acknowledge stop", "slot", slotIdx)
		}
		r.finishStop(m)
		return nil
	}
	if !r.pool.EnqueueTop(ctx, "stop_test", task, worker.PriorityImmediate, false) {
		return fmt.Errorf("%w: stop of slot %d", ErrQueueFull, slotIdx)
	}
	return nil
}

// HandleCommand decodes raw and dispatches it
func (r *Runtime) HandleCommand(ctx context.Context, raw []byte) error {
	cmd, err := r.decoder.Decode(raw)
	if err != nil {
		return err
	}
	switch cmd.Type {
	case command.TypeStartTest:
		return r.StartTest(ctx, cmd.SlotIdx, cmd.Config)
	case command.TypeStopTest:
		return r.StopTest(ctx, cmd.SlotIdx)
	}
	return fmt.Errorf("%w: unsupported type %q", command.ErrInvalidCommand, cmd.Type)
}

func (r *Runtime) onTransition(slotIdx int, from, to slot.State) {
	m, ok := r.machines.Get(slotIdx)
	if !ok {
		return
	}
	snap := m.Snapshot()
	ctx := context.Background()
	if err := r.store.Save(ctx, &snap); err != nil {
		r.logger.Errorw("failed to persist slot snapshot", "slot", slotIdx, "error", err)
	}
	r.trackProcess(slotIdx, from, to)

	update := updateOf(&snap)
	terminal := to.IsTerminal()
	r.enqueueReport("slot_update", worker.PriorityHigh, !terminal, func(ctx context.Context) error {
		return r.transport.SendUpdate(ctx, update)
	})
	var code string
	switch to {
	case slot.StateFailed:
		code = ErrorCodeFailed
	case slot.StateError:
		code = ErrorCodeError
	default:
		return
	}
	report := &transport.ErrorReport{SlotIdx: slotIdx, Code: code, Message: snap.Context.ErrorMessage, Timestamp: clock.Now()}
	r.enqueueReport("slot_error", worker.PriorityHigh, false, func(ctx context.Context) error {
		return r.transport.SendError(ctx, report)
	})
}

func (r *Runtime) trackProcess(slotIdx int, from, to slot.State) {
	switch {
	case to == slot.StateRunning && from != slot.StateRunning:
		if _, watched := r.monitor.Watched()[slotIdx]; watched {
			r.monitor.SetRunning(slotIdx, true)
			return
		}
		if r.pidResolver == nil {
			return
		}
		pid, ok := r.pidResolver(slotIdx)
		if !ok {
			r.logger.Warnw("harness process id unavailable", "slot", slotIdx)
			return
		}
		r.monitor.WatchSlot(slotIdx, pid, true)
	case from == slot.StateRunning && to == slot.StatePaused:
		r.monitor.SetRunning(slotIdx, false)
	case from != to && to != slot.StateRunning:
		if from == slot.StateRunning || from == slot.StatePaused || from == slot.StateStopping {
			r.monitor.UnwatchSlot(slotIdx)
		}
	}
}

func (r *Runtime) onTermination(ctx context.Context, e monitor.TerminationEvent) {
	m, ok := r.machines.Get(e.SlotIdx)
	if !ok {
		return
	}
	message := fmt.Sprintf("process terminated: %s (pid %d)", e.Reason, e.PID)
	m.Annotate(&slot.Update{ErrorMessage: slot.Ptr(message)})
	m.Force(slot.StateError, string(e.Reason))
	r.batch.Cancel(e.SlotIdx)
	termination := &transport.Termination{
		SlotIdx:    e.SlotIdx,
		PID:        e.PID,
		Reason:     e.Reason,
		WasRunning: e.WasRunning,
		Timestamp:  e.Timestamp,
	}
	r.enqueueReport("process_terminated", worker.PriorityImmediate, false, func(ctx context.Context) error {
		return r.transport.SendTermination(ctx, termination)
	})
}

func (r *Runtime) sendProgress(ctx context.Context, m *machine.Machine, p progress.Batch) {
	snap := m.Snapshot()
	update := updateOf(&snap)
	update.CurrentLoop = p.CurrentLoop
	update.TotalLoop = p.TotalLoop
	update.CurrentBatch = p.CurrentBatch
	update.TotalBatch = p.TotalBatch
	update.ProgressPercent = p.ProgressPercent
	if p.ProcessState != "" {
		update.ProcessState = p.ProcessState
	}
	if p.EstimatedRemaining != nil {
		seconds := int64(p.EstimatedRemaining.Seconds())
		update.EstimatedRemainingSec = &seconds
	}
	r.enqueueReport("slot_progress", worker.PriorityNormal, true, func(ctx context.Context) error {
		return r.transport.SendUpdate(ctx, update)
	})
}

// enqueueReport queues a transport call on the top queue. Reports are
// enqueued from slot workers, so a blocking enqueue is bounded by
// reportTimeout.
func (r *Runtime) enqueueReport(name string, priority worker.Priority, dropIfFull bool, task worker.Task) {
	timeout := r.reportTimeout
	if timeout <= 0 {
		timeout = transport.DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if !r.pool.EnqueueTop(ctx, name, task, priority, dropIfFull) {
		r.logger.Warnw("report not queued", "task", name)
	}
}

func updateOf(snap *slot.Snapshot) *transport.Update {
	return &transport.Update{
		SlotIdx:         snap.SlotIdx,
		Status:          snap.State,
		ProcessState:    snap.Context.ProcessState,
		TestName:        snap.Context.TestName,
		CurrentLoop:     snap.Context.CurrentLoop,
		TotalLoop:       snap.Context.TotalLoop,
		CurrentBatch:    snap.Context.CurrentBatch,
		TotalBatch:      snap.Context.TotalBatch,
		ProgressPercent: snap.ProgressPercent,
		ErrorMessage:    snap.Context.ErrorMessage,
		Timestamp:       snap.CapturedAt,
	}
}
