package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/viant/slotor/internal/logging"
	"go.uber.org/zap"
)

// Stats reports queue lengths per tier
type Stats struct {
	Top       int   `json:"top"`
	Scheduler int   `json:"scheduler"`
	Slots     []int `json:"slots"`
}

// Pool is the three-tier priority worker pool
type Pool struct {
	config    Config
	slotCount int
	logger    *zap.SugaredLogger
	seq       atomic.Uint64

	top       *queue
	scheduler *queue
	slots     []*queue

	mux      sync.Mutex
	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	stopped  bool
}

// SlotCount returns the number of slot queues
func (p *Pool) SlotCount() int {
	return p.slotCount
}

// Start launches the top, scheduler and per-slot consumers
func (p *Pool) Start(ctx context.Context) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.running || p.stopped {
		return
	}
	p.running = true
	p.ctx, p.cancelFn = context.WithCancel(ctx)
	p.wg.Add(2 + len(p.slots))
	go p.consume(p.ctx, p.top, "top", p.execute)
	go p.consume(p.ctx, p.scheduler, "scheduler", p.dispatch)
	for i, q := range p.slots {
		go p.consume(p.ctx, q, fmt.Sprintf("slot-%d", i), p.execute)
	}
	p.logger.Infow("worker pool started", "slots", p.slotCount)
}

// Stop cancels the consumers and waits for running tasks to return. Queued
// items that did not start are discarded.
func (p *Pool) Stop() {
	p.mux.Lock()
	if p.stopped {
		p.mux.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancelFn
	p.mux.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	discarded := p.top.Drain() + p.scheduler.Drain()
	for _, q := range p.slots {
		discarded += q.Drain()
	}
	p.logger.Infow("worker pool stopped", "discarded", discarded)
}

// EnqueueTop submits an agent-level task. With dropIfFull the task is dropped
// when the top queue is full, otherwise the call waits for space.
func (p *Pool) EnqueueTop(ctx context.Context, name string, task Task, priority Priority, dropIfFull bool) bool {
	item := p.newItem(name, -1, task, priority, dropIfFull)
	return p.put(ctx, p.top, item)
}

// EnqueueSlot submits a task for slotIdx. It passes the scheduler queue
// before reaching the slot queue; both hops apply the same drop policy.
func (p *Pool) EnqueueSlot(ctx context.Context, slotIdx int, name string, task Task, priority Priority, dropIfFull bool) bool {
	if slotIdx < 0 || slotIdx >= len(p.slots) {
		p.logger.Errorw("invalid slot for task", "slot", slotIdx, "task", name)
		return false
	}
	item := p.newItem(name, slotIdx, task, priority, dropIfFull)
	return p.put(ctx, p.scheduler, item)
}

// Pending returns queue lengths
func (p *Pool) Pending() Stats {
	ret := Stats{Top: p.top.Len(), Scheduler: p.scheduler.Len(), Slots: make([]int, len(p.slots))}
	for i, q := range p.slots {
		ret.Slots[i] = q.Len()
	}
	return ret
}

func (p *Pool) newItem(name string, slotIdx int, task Task, priority Priority, dropIfFull bool) *Item {
	return &Item{
		Priority:   priority,
		Seq:        p.seq.Add(1),
		Name:       name,
		SlotIdx:    slotIdx,
		Task:       task,
		DropIfFull: dropIfFull,
	}
}

// lifetime returns the consumers' context, nil before Start
func (p *Pool) lifetime() (context.Context, bool) {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.ctx, p.stopped
}

func (p *Pool) put(ctx context.Context, q *queue, item *Item) bool {
	lifetime, stopped := p.lifetime()
	if stopped {
		p.logger.Warnw("worker pool stopped, task rejected", "queue", q.name, "task", item.Name)
		return false
	}
	if item.DropIfFull {
		if !q.TryPut(item) {
			p.logger.Warnw("queue full, task dropped", "queue", q.name, "task", item.Name, "slot", item.SlotIdx)
			return false
		}
		return true
	}
	if lifetime != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		release := context.AfterFunc(lifetime, cancel)
		defer release()
	}
	if err := q.Put(ctx, item); err != nil {
		p.logger.Warnw("task not queued", "queue", q.name, "task", item.Name, "error", err)
		return false
	}
	return true
}

func (p *Pool) consume(ctx context.Context, q *queue, workerName string, handle func(ctx context.Context, workerName string, item *Item)) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := q.Get(ctx)
		if err != nil {
			return
		}
		handle(ctx, workerName, item)
	}
}

// dispatch forwards a scheduler item to its slot queue
func (p *Pool) dispatch(ctx context.Context, workerName string, item *Item) {
	target := p.slots[item.SlotIdx]
	if item.DropIfFull {
		if !target.TryPut(item) {
			p.logger.Warnw("slot queue full, task dropped", "worker", workerName, "slot", item.SlotIdx, "task", item.Name)
		}
		return
	}
	if err := target.Put(ctx, item); err != nil {
		p.logger.Warnw("task not forwarded to slot", "worker", workerName, "slot", item.SlotIdx, "task", item.Name, "error", err)
	}
}

// execute runs a task; errors and panics are logged and never stop the worker
func (p *Pool) execute(ctx context.Context, workerName string, item *Item) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("task panicked", "worker", workerName, "task", item.Name, "panic", fmt.Sprint(r))
		}
	}()
	if item.Task == nil {
		return
	}
	if err := item.Task(ctx); err != nil {
		p.logger.Errorw("task failed", "worker", workerName, "task", item.Name, "error", err)
	}
}

// New creates a pool with slotCount slot queues
func New(slotCount int, options ...Option) *Pool {
	if slotCount < 0 {
		slotCount = 0
	}
	ret := &Pool{
		config:    DefaultConfig(),
		slotCount: slotCount,
		logger:    logging.Nop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	schedulerCapacity := ret.config.SchedulerCapacity
	if schedulerCapacity == 0 {
		schedulerCapacity = ret.config.SlotCapacity * slotCount
	}
	ret.top = newQueue("top", ret.config.TopCapacity)
	ret.scheduler = newQueue("scheduler", schedulerCapacity)
	ret.slots = make([]*queue, slotCount)
	for i := range ret.slots {
		ret.slots[i] = newQueue(fmt.Sprintf("slot-%d", i), ret.config.SlotCapacity)
	}
	return ret
}
