// Package memory provides a scripted in-memory controller that simulates the
// harness of every slot. Each Start/ContinueBatch replays the slot's status
// script; once exhausted the last status is repeated.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/model/test"
	"github.com/viant/slotor/service/controller"
)

// DefaultScript is replayed after every start or continue
var DefaultScript = []slot.ProcessState{slot.ProcessInProgress, slot.ProcessInProgress, slot.ProcessPass}

type slotState struct {
	script    []slot.ProcessState
	position  int
	active    bool
	stopped   bool
	starts    int
	continues int
	stops     int
	config    *test.Config
	failStart bool
	failNext  bool
	readErr   error
}

// Controller is a scripted harness simulator
type Controller struct {
	mux      sync.Mutex
	slots    map[int]*slotState
	script   []slot.ProcessState
	basePID  int
	onRead   func(slotIdx int, status slot.ProcessState)
	onStart  func(slotIdx int, cfg *test.Config)
	maxSlots int
}

// Option configures the simulator
type Option func(*Controller)

// WithScript sets the default status script for every slot
func WithScript(script ...slot.ProcessState) Option {
	return func(c *Controller) {
		c.script = script
	}
}

// WithBasePID sets the pid reported for slot 0; slot n reports base+n
func WithBasePID(pid int) Option {
	return func(c *Controller) {
		c.basePID = pid
	}
}

// WithOnRead sets a hook invoked on every status read
func WithOnRead(fn func(slotIdx int, status slot.ProcessState)) Option {
	return func(c *Controller) {
		c.onRead = fn
	}
}

// WithOnStart sets a hook invoked on every successful start
func WithOnStart(fn func(slotIdx int, cfg *test.Config)) Option {
	return func(c *Controller) {
		c.onStart = fn
	}
}

// WithMaxSlots limits accepted slot indices to [0, n)
func WithMaxSlots(n int) Option {
	return func(c *Controller) {
		c.maxSlots = n
	}
}

func (c *Controller) slot(slotIdx int) (*slotState, error) {
	if slotIdx < 0 || (c.maxSlots > 0 && slotIdx >= c.maxSlots) {
		return nil, fmt.Errorf("%w: slot %d", controller.ErrUnavailable, slotIdx)
	}
	ret, ok := c.slots[slotIdx]
	if !ok {
		ret = &slotState{script: c.script}
		c.slots[slotIdx] = ret
	}
	return ret, nil
}

// SetScript overrides the status script of a single slot
func (c *Controller) SetScript(slotIdx int, script ...slot.ProcessState) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if state, err := c.slot(slotIdx); err == nil {
		state.script = script
		state.position = 0
	}
}

// FailStart makes the next Start of slotIdx return false
func (c *Controller) FailStart(slotIdx int, fail bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if state, err := c.slot(slotIdx); err == nil {
		state.failStart = fail
	}
}

// FailContinue makes the next ContinueBatch of slotIdx return false
func (c *Controller) FailContinue(slotIdx int, fail bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if state, err := c.slot(slotIdx); err == nil {
		state.failNext = fail
	}
}

// FailRead makes every ReadStatus of slotIdx return err (nil clears it)
func (c *Controller) FailRead(slotIdx int, err error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if state, e := c.slot(slotIdx); e == nil {
		state.readErr = err
	}
}

// Start implements controller.Controller
func (c *Controller) Start(ctx context.Context, slotIdx int, cfg *test.Config) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mux.Lock()
	state, err := c.slot(slotIdx)
	if err != nil {
		c.mux.Unlock()
		return false, err
	}
	if state.failStart {
		c.mux.Unlock()
		return false, nil
	}
	state.starts++
	state.config = cfg
	state.position = 0
	state.active = true
	state.stopped = false
	onStart := c.onStart
	c.mux.Unlock()
	if onStart != nil {
		onStart(slotIdx, cfg)
	}
	return true, nil
}

// ContinueBatch implements controller.Controller
func (c *Controller) ContinueBatch(ctx context.Context, slotIdx int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	state, err := c.slot(slotIdx)
	if err != nil {
		return false, err
	}
	if state.failNext || state.config == nil {
		return false, nil
	}
	state.continues++
	state.position = 0
	state.active = true
	state.stopped = false
	return true, nil
}

// Stop implements controller.Controller
func (c *Controller) Stop(ctx context.Context, slotIdx int) (bool, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	state, err := c.slot(slotIdx)
	if err != nil {
		return false, err
	}
	state.stops++
	state.active = false
	state.stopped = true
	return true, nil
}

// ReadStatus implements controller.Controller
func (c *Controller) ReadStatus(ctx context.Context, slotIdx int) (slot.ProcessState, error) {
	if err := ctx.Err(); err != nil {
		return slot.ProcessUnknown, err
	}
	c.mux.Lock()
	state, err := c.slot(slotIdx)
	if err != nil {
		c.mux.Unlock()
		return slot.ProcessUnknown, err
	}
	if state.readErr != nil {
		readErr := state.readErr
		c.mux.Unlock()
		return slot.ProcessUnknown, readErr
	}
	var status slot.ProcessState
	switch {
	case state.stopped:
		status = slot.ProcessStop
	case !state.active || len(state.script) == 0:
		status = slot.ProcessIdle
	default:
		idx := state.position
		if idx >= len(state.script) {
			idx = len(state.script) - 1
		}
		status = state.script[idx]
		state.position++
	}
	onRead := c.onRead
	c.mux.Unlock()
	if onRead != nil {
		onRead(slotIdx, status)
	}
	return status, nil
}

// Counters returns start, continue and stop call counts of a slot
func (c *Controller) Counters(slotIdx int) (starts, continues, stops int) {
	c.mux.Lock()
	defer c.mux.Unlock()
	state, ok := c.slots[slotIdx]
	if !ok {
		return 0, 0, 0
	}
	return state.starts, state.continues, state.stops
}

// LastConfig returns the config passed to the most recent Start of a slot
func (c *Controller) LastConfig(slotIdx int) *test.Config {
	c.mux.Lock()
	defer c.mux.Unlock()
	if state, ok := c.slots[slotIdx]; ok {
		return state.config
	}
	return nil
}

// PID returns the simulated harness pid of a slot; it satisfies
// controller.PIDResolver.
func (c *Controller) PID(slotIdx int) (int, bool) {
	if c.basePID <= 0 || slotIdx < 0 {
		return 0, false
	}
	return c.basePID + slotIdx, true
}

// New creates a simulator
func New(options ...Option) *Controller {
	ret := &Controller{
		slots:  make(map[int]*slotState),
		script: DefaultScript,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

var _ controller.Controller = (*Controller)(nil)
