package monitor

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mux    sync.Mutex
	states map[int]Liveness
	errs   map[int]error
}

func (f *fakeProber) set(pid int, liveness Liveness) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.states[pid] = liveness
}

func (f *fakeProber) Probe(pid int) (Liveness, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if err, ok := f.errs[pid]; ok {
		return Alive, err
	}
	return f.states[pid], nil
}

func newFakeProber() *fakeProber {
	return &fakeProber{states: map[int]Liveness{}, errs: map[int]error{}}
}

func TestMonitor_Check(t *testing.T) {
	prober := newFakeProber()
	prober.set(100, Alive)
	prober.set(101, Gone)
	prober.set(102, Zombie)
	prober.set(103, AccessDenied)
	prober.errs[104] = errors.New("probe failed")

	var received []TerminationEvent
	monitor := New(prober, WithTerminationCallback(func(ctx context.Context, event TerminationEvent) {
		received = append(received, event)
	}))
	for slotIdx := 0; slotIdx < 5; slotIdx++ {
		monitor.WatchSlot(slotIdx, 100+slotIdx, false)
	}
	monitor.SetRunning(1, true)

	events := monitor.Check(context.Background())
	require.Len(t, events, 2)
	assert.Equal(t, events, received)
	assert.Equal(t, 1, events[0].SlotIdx)
	assert.Equal(t, 101, events[0].PID)
	assert.Equal(t, ReasonUserTerminated, events[0].Reason)
	assert.True(t, events[0].WasRunning)
	assert.Equal(t, 2, events[1].SlotIdx)
	assert.Equal(t, ReasonProcessCrashed, events[1].Reason)
	assert.False(t, events[1].WasRunning)
	assert.Equal(t, map[int]int{0: 100, 3: 103, 4: 104}, monitor.Watched())

	assert.Empty(t, monitor.Check(context.Background()), "terminated slots are reported once")
}

func TestMonitor_Unwatch(t *testing.T) {
	prober := newFakeProber()
	prober.set(200, Gone)
	monitor := New(prober)
	monitor.WatchSlot(0, 200, true)
	monitor.UnwatchSlot(0)
	monitor.UnwatchSlot(0)
	monitor.UnwatchSlot(7)
	monitor.SetRunning(7, true)
	assert.Empty(t, monitor.Check(context.Background()))
	assert.Empty(t, monitor.Watched())
}

func TestMonitor_CallbackPanicIsRecovered(t *testing.T) {
	prober := newFakeProber()
	prober.set(300, Gone)
	prober.set(301, Gone)
	calls := 0
	monitor := New(prober)
	monitor.SetTerminationCallback(func(ctx context.Context, event TerminationEvent) {
		calls++
		panic("boom")
	})
	monitor.WatchSlot(0, 300, true)
	monitor.WatchSlot(1, 301, true)
	events := monitor.Check(context.Background())
	assert.Len(t, events, 2)
	assert.Equal(t, 2, calls)
}

func TestMonitor_StartStop(t *testing.T) {
	prober := newFakeProber()
	prober.set(400, Alive)
	reported := make(chan TerminationEvent, 1)
	monitor := New(prober, WithInterval(time.Millisecond), WithTerminationCallback(func(ctx context.Context, event TerminationEvent) {
		reported <- event
	}))
	monitor.WatchSlot(2, 400, true)
	monitor.Start(context.Background())
	monitor.Start(context.Background())
	assert.True(t, monitor.IsRunning())

	prober.set(400, Gone)
	select {
	case event := <-reported:
		assert.Equal(t, 2, event.SlotIdx)
		assert.Equal(t, ReasonUserTerminated, event.Reason)
	case <-time.After(time.Second):
		t.Fatal("termination was not reported")
	}
	monitor.Stop()
	monitor.Stop()
	assert.False(t, monitor.IsRunning())
}

func TestProcProber(t *testing.T) {
	prober := NewProcProber()
	testCases := []struct {
		description string
		pid         int
		expect      Liveness
	}{
		{description: "invalid pid", pid: 0, expect: Gone},
		{description: "nonexistent pid", pid: 99999999, expect: Gone},
		{description: "own process", pid: os.Getpid(), expect: Alive},
	}
	for _, tc := range testCases {
		liveness, err := prober.Probe(tc.pid)
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expect, liveness, tc.description)
	}
}
