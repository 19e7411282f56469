package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mux   sync.Mutex
	names []string
}

func (c *collector) task(name string) Task {
	return func(ctx context.Context) error {
		c.mux.Lock()
		defer c.mux.Unlock()
		c.names = append(c.names, name)
		return nil
	}
}

func (c *collector) get() []string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]string{}, c.names...)
}

func TestPool_TopPriority(t *testing.T) {
	pool := New(1)
	pool.Start(context.Background())
	defer pool.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	require.True(t, pool.EnqueueTop(context.Background(), "blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, PriorityImmediate, false))
	<-started

	c := &collector{}
	ctx := context.Background()
	require.True(t, pool.EnqueueTop(ctx, "low", c.task("low"), PriorityLow, false))
	require.True(t, pool.EnqueueTop(ctx, "normal-1", c.task("normal-1"), PriorityNormal, false))
	require.True(t, pool.EnqueueTop(ctx, "high", c.task("high"), PriorityHigh, false))
	require.True(t, pool.EnqueueTop(ctx, "immediate", c.task("immediate"), PriorityImmediate, false))
	require.True(t, pool.EnqueueTop(ctx, "normal-2", c.task("normal-2"), PriorityNormal, false))
	close(release)

	require.Eventually(t, func() bool { return len(c.get()) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"immediate", "high", "normal-1", "normal-2", "low"}, c.get())
}

func TestPool_DropIfFullPending(t *testing.T) {
	pool := New(1, WithConfig(Config{TopCapacity: 1, SlotCapacity: 1}))
	ctx := context.Background()
	assert.True(t, pool.EnqueueTop(ctx, "first", nil, PriorityNormal, true))
	assert.False(t, pool.EnqueueTop(ctx, "second", nil, PriorityNormal, true))

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.False(t, pool.EnqueueTop(timeoutCtx, "blocking", nil, PriorityNormal, false))
	assert.Equal(t, 1, pool.Pending().Top)

	assert.True(t, pool.EnqueueSlot(ctx, 0, "slot-first", nil, PriorityNormal, true))
	assert.False(t, pool.EnqueueSlot(ctx, 0, "slot-second", nil, PriorityNormal, true))
	assert.Equal(t, Stats{Top: 1, Scheduler: 1, Slots: []int{0}}, pool.Pending())
}

func TestPool_SlotPriority(t *testing.T) {
	pool := New(1)
	pool.Start(context.Background())
	defer pool.Stop()

	c := &collector{}
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	first := c.task("first")
	require.True(t, pool.EnqueueSlot(ctx, 0, "first", func(ctx context.Context) error {
		close(started)
		<-release
		return first(ctx)
	}, PriorityNormal, false))
	<-started

	require.True(t, pool.EnqueueSlot(ctx, 0, "normal", c.task("normal"), PriorityNormal, false))
	require.True(t, pool.EnqueueSlot(ctx, 0, "high", c.task("high"), PriorityHigh, false))
	require.Eventually(t, func() bool { return pool.Pending().Slots[0] == 2 }, time.Second, time.Millisecond)
	close(release)

	require.Eventually(t, func() bool { return len(c.get()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"first", "high", "normal"}, c.get())
}

func TestPool_DropIfFull(t *testing.T) {
	pool := New(1, WithConfig(Config{TopCapacity: 1, SlotCapacity: 1}))
	pool.Start(context.Background())
	defer pool.Stop()

	c := &collector{}
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	first := c.task("first")
	require.True(t, pool.EnqueueTop(ctx, "first", func(ctx context.Context) error {
		close(started)
		<-release
		return first(ctx)
	}, PriorityNormal, true))
	<-started

	assert.True(t, pool.EnqueueTop(ctx, "queued", c.task("queued"), PriorityNormal, true))
	assert.False(t, pool.EnqueueTop(ctx, "dropped", c.task("dropped"), PriorityHigh, true))
	close(release)

	require.Eventually(t, func() bool { return len(c.get()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []string{"first", "queued"}, c.get())
}

func TestPool_SlotSerialized(t *testing.T) {
	pool := New(2)
	pool.Start(context.Background())
	defer pool.Stop()

	var active, maxActive int32
	c := &collector{}
	var expect []string
	for i := 0; i < 20; i++ {
		name := string(rune('a' + i))
		expect = append(expect, name)
		inner := c.task(name)
		require.True(t, pool.EnqueueSlot(context.Background(), 1, name, func(ctx context.Context) error {
			current := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if current <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, current) {
					break
				}
			}
			time.Sleep(100 * time.Microsecond)
			atomic.AddInt32(&active, -1)
			return inner(ctx)
		}, PriorityNormal, false))
	}
	require.Eventually(t, func() bool { return len(c.get()) == 20 }, 2*time.Second, time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxActive))
	assert.Equal(t, expect, c.get())
}

func TestPool_TaskFailuresKeepWorker(t *testing.T) {
	pool := New(1)
	pool.Start(context.Background())
	defer pool.Stop()

	c := &collector{}
	ctx := context.Background()
	require.True(t, pool.EnqueueSlot(ctx, 0, "panic", func(ctx context.Context) error { panic("boom") }, PriorityNormal, false))
	require.True(t, pool.EnqueueSlot(ctx, 0, "error", func(ctx context.Context) error { return errors.New("failed") }, PriorityNormal, false))
	require.True(t, pool.EnqueueSlot(ctx, 0, "ok", c.task("ok"), PriorityNormal, false))
	require.Eventually(t, func() bool { return len(c.get()) == 1 }, time.Second, time.Millisecond)
}

func TestPool_InvalidSlot(t *testing.T) {
	pool := New(2)
	assert.False(t, pool.EnqueueSlot(context.Background(), 2, "x", nil, PriorityNormal, false))
	assert.False(t, pool.EnqueueSlot(context.Background(), -1, "x", nil, PriorityNormal, false))
}

func TestPool_StopWaitsForRunningTasks(t *testing.T) {
	pool := New(1)
	pool.Start(context.Background())

	started := make(chan struct{})
	var finished atomic.Bool
	require.True(t, pool.EnqueueSlot(context.Background(), 0, "long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}, PriorityNormal, false))
	<-started
	require.True(t, pool.EnqueueSlot(context.Background(), 0, "queued", nil, PriorityNormal, false))

	pool.Stop()
	assert.True(t, finished.Load())
	assert.Equal(t, Stats{Slots: []int{0}}, pool.Pending())
	assert.False(t, pool.EnqueueTop(context.Background(), "late", nil, PriorityNormal, true))
}

func TestPool_StopReleasesBlockedPut(t *testing.T) {
	pool := New(1, WithConfig(Config{TopCapacity: 1, SlotCapacity: 1}))
	pool.Start(context.Background())
	ctx := context.Background()

	topStarted := make(chan struct{})
	require.True(t, pool.EnqueueTop(ctx, "busy", func(ctx context.Context) error {
		close(topStarted)
		<-ctx.Done()
		return nil
	}, PriorityNormal, false))
	<-topStarted
	require.True(t, pool.EnqueueTop(ctx, "filler", nil, PriorityNormal, false))

	putting := make(chan struct{})
	var queued atomic.Bool
	queued.Store(true)
	require.True(t, pool.EnqueueSlot(ctx, 0, "report", func(ctx context.Context) error {
		close(putting)
		queued.Store(pool.EnqueueTop(context.Background(), "update", nil, PriorityHigh, false))
		return nil
	}, PriorityNormal, false))
	<-putting

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pool stop blocked by a pending put")
	}
	assert.False(t, queued.Load())
}

func TestPool_SequenceAcrossQueues(t *testing.T) {
	pool := New(1)
	first := pool.newItem("a", -1, nil, PriorityNormal, false)
	second := pool.newItem("b", 0, nil, PriorityNormal, false)
	assert.Less(t, first.Seq, second.Seq)
}
