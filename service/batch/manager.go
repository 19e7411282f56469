package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/slotor/model/test"
)

type run struct {
	done   chan struct{}
	result bool
	cancel context.CancelFunc
}

// Manager runs at most one batch execution per slot
type Manager struct {
	executor *Executor
	mux      sync.Mutex
	runs     map[int]*run
}

// Executor returns the underlying executor
func (m *Manager) Executor() *Executor {
	return m.executor
}

// Run executes a batch test synchronously. It returns ErrAlreadyRunning when
// the slot already has an active run.
func (m *Manager) Run(ctx context.Context, slotIdx int, cfg *test.Config, onProgress ProgressFunc) (bool, error) {
	r, ctx, err := m.register(ctx, slotIdx)
	if err != nil {
		return false, err
	}
	m.execute(ctx, slotIdx, r, cfg, onProgress)
	return r.result, nil
}

// Start executes a batch test asynchronously and returns false when the slot
// already has an active run.
func (m *Manager) Start(ctx context.Context, slotIdx int, cfg *test.Config, onProgress ProgressFunc) bool {
	r, runCtx, err := m.register(ctx, slotIdx)
	if err != nil {
		m.executor.logger.Warnw("batch test already running", "slot", slotIdx)
		return false
	}
	go m.execute(runCtx, slotIdx, r, cfg, onProgress)
	m.executor.logger.Infow("batch test started", "slot", slotIdx)
	return true
}

func (m *Manager) register(ctx context.Context, slotIdx int) (*run, context.Context, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if r, ok := m.runs[slotIdx]; ok && !r.finished() {
		return nil, nil, fmt.Errorf("%w: slot %d", ErrAlreadyRunning, slotIdx)
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{done: make(chan struct{}), cancel: cancel}
	m.runs[slotIdx] = r
	return r, runCtx, nil
}

func (m *Manager) execute(ctx context.Context, slotIdx int, r *run, cfg *test.Config, onProgress ProgressFunc) {
	defer func() {
		if p := recover(); p != nil {
			m.executor.logger.Errorw("batch execution panicked", "slot", slotIdx, "panic", fmt.Sprint(p))
			r.result = false
		}
		r.cancel()
		close(r.done)
	}()
	r.result = m.executor.Execute(ctx, slotIdx, cfg, onProgress)
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Stop requests cancellation of the run on slotIdx. The active run stops the
// harness itself; without an active run the harness is stopped directly.
func (m *Manager) Stop(ctx context.Context, slotIdx int) bool {
	m.executor.RequestCancel(slotIdx)
	if m.IsRunning(slotIdx) {
		m.executor.logger.Infow("batch test stop requested", "slot", slotIdx)
		return true
	}
	ok, err := m.executor.controller.Stop(ctx, slotIdx)
	if err != nil {
		m.executor.logger.Errorw("failed to stop harness", "slot", slotIdx, "error", err)
		return false
	}
	return ok
}

// Cancel requests cancellation and cancels the context of the active run
func (m *Manager) Cancel(slotIdx int) {
	m.executor.RequestCancel(slotIdx)
	m.mux.Lock()
	r, ok := m.runs[slotIdx]
	m.mux.Unlock()
	if ok {
		r.cancel()
	}
}

// IsRunning returns true when slotIdx has an active run
func (m *Manager) IsRunning(slotIdx int) bool {
	m.mux.Lock()
	defer m.mux.Unlock()
	r, ok := m.runs[slotIdx]
	return ok && !r.finished()
}

// Wait blocks until the latest run of slotIdx completes and returns its
// result, or nil when the slot never ran or ctx is done first.
func (m *Manager) Wait(ctx context.Context, slotIdx int) *bool {
	m.mux.Lock()
	r, ok := m.runs[slotIdx]
	m.mux.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-r.done:
		result := r.result
		return &result
	case <-ctx.Done():
		return nil
	}
}

// NewManager creates a manager over executor
func NewManager(executor *Executor) *Manager {
	return &Manager{executor: executor, runs: make(map[int]*run)}
}
