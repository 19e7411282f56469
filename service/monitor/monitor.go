package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/viant/slotor/internal/clock"
	"github.com/viant/slotor/internal/logging"
	"go.uber.org/zap"
)

// DefaultInterval is the default time between checks
const DefaultInterval = 5 * time.Second

type watch struct {
	pid     int
	running bool
}

// Monitor periodically probes watched processes
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *zap.SugaredLogger

	mux      sync.Mutex
	watched  map[int]*watch
	callback TerminationCallback

	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

// WatchSlot registers the process of slotIdx
func (m *Monitor) WatchSlot(slotIdx, pid int, isRunning bool) {
	m.mux.Lock()
	m.watched[slotIdx] = &watch{pid: pid, running: isRunning}
	m.mux.Unlock()
	m.logger.Infow("started watching process", "slot", slotIdx, "pid", pid, "isRunning", isRunning)
}

// UnwatchSlot stops watching slotIdx; unknown slots are ignored
func (m *Monitor) UnwatchSlot(slotIdx int) {
	m.mux.Lock()
	w, ok := m.watched[slotIdx]
	delete(m.watched, slotIdx)
	m.mux.Unlock()
	if ok {
		m.logger.Infow("stopped watching process", "slot", slotIdx, "pid", w.pid)
	}
}

// SetRunning updates the running flag of a watched slot
func (m *Monitor) SetRunning(slotIdx int, running bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if w, ok := m.watched[slotIdx]; ok {
		w.running = running
	}
}

// Watched returns watched pids indexed by slot
func (m *Monitor) Watched() map[int]int {
	m.mux.Lock()
	defer m.mux.Unlock()
	ret := make(map[int]int, len(m.watched))
	for slotIdx, w := range m.watched {
		ret[slotIdx] = w.pid
	}
	return ret
}

// SetTerminationCallback replaces the termination callback
func (m *Monitor) SetTerminationCallback(fn TerminationCallback) {
	m.mux.Lock()
	m.callback = fn
	m.mux.Unlock()
}

// IsRunning returns true while the check loop is active
func (m *Monitor) IsRunning() bool {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.cancelFn != nil
}

// Start launches the periodic check loop
func (m *Monitor) Start(ctx context.Context) {
	m.mux.Lock()
	if m.cancelFn != nil {
		m.mux.Unlock()
		m.logger.Warnw("process monitor already running")
		return
	}
	ctx, m.cancelFn = context.WithCancel(ctx)
	m.mux.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			m.Check(ctx)
			if err := clock.Sleep(ctx, m.interval); err != nil {
				return
			}
		}
	}()
	m.logger.Infow("process monitor started", "interval", m.interval)
}

// Stop terminates the check loop and waits for it to exit
func (m *Monitor) Stop() {
	m.mux.Lock()
	cancel := m.cancelFn
	m.cancelFn = nil
	m.mux.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.logger.Infow("process monitor stopped")
}

// Check probes every watched process once and reports terminated ones. It
// returns the events that were emitted.
func (m *Monitor) Check(ctx context.Context) []TerminationEvent {
	m.mux.Lock()
	slots := make([]int, 0, len(m.watched))
	pids := make(map[int]int, len(m.watched))
	for slotIdx, w := range m.watched {
		slots = append(slots, slotIdx)
		pids[slotIdx] = w.pid
	}
	m.mux.Unlock()
	sort.Ints(slots)

	var events []TerminationEvent
	for _, slotIdx := range slots {
		pid := pids[slotIdx]
		liveness, err := m.prober.Probe(pid)
		if err != nil {
			m.logger.Errorw("error checking process", "slot", slotIdx, "pid", pid, "error", err)
			continue
		}
		var reason Reason
		switch liveness {
		case Alive:
			continue
		case AccessDenied:
			m.logger.Warnw("access denied to process", "slot", slotIdx, "pid", pid)
			continue
		case Gone:
			reason = ReasonUserTerminated
		case Zombie:
			reason = ReasonProcessCrashed
		default:
			reason = ReasonUnknown
		}
		event, ok := m.terminate(slotIdx, pid, reason)
		if !ok {
			continue
		}
		events = append(events, event)
		m.notify(ctx, event)
		m.logger.Warnw("process terminated unexpectedly", "slot", slotIdx, "pid", pid, "reason", reason, "wasRunning", event.WasRunning)
	}
	return events
}

// terminate removes the watch if it still refers to pid
func (m *Monitor) terminate(slotIdx, pid int, reason Reason) (TerminationEvent, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	w, ok := m.watched[slotIdx]
	if !ok || w.pid != pid {
		return TerminationEvent{}, false
	}
	delete(m.watched, slotIdx)
	return TerminationEvent{
		SlotIdx:    slotIdx,
		PID:        pid,
		Reason:     reason,
		Timestamp:  clock.Now(),
		WasRunning: w.running,
	}, true
}

func (m *Monitor) notify(ctx context.Context, event TerminationEvent) {
	m.mux.Lock()
	callback := m.callback
	m.mux.Unlock()
	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorw("termination callback panicked", "slot", event.SlotIdx, "panic", fmt.Sprint(r))
		}
	}()
	callback(ctx, event)
}

// New creates a monitor; a nil prober defaults to ProcProber
func New(prober Prober, options ...Option) *Monitor {
	if prober == nil {
		prober = NewProcProber()
	}
	ret := &Monitor{
		prober:   prober,
		interval: DefaultInterval,
		logger:   logging.Nop(),
		watched:  make(map[int]*watch),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
