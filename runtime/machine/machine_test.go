package machine

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/model/slot"
	"pgregory.net/rapid"
)

func TestMachine_Trigger(t *testing.T) {
	for _, transition := range slot.Transitions {
		m := New(1, WithInitialState(transition.From))
		to, err := m.Trigger(transition.Event, nil, "")
		require.NoError(t, err, "%s + %s", transition.From, transition.Event)
		assert.Equal(t, transition.To, to)
		assert.Equal(t, transition.To, m.State())
		history := m.History()
		require.Len(t, history, 1)
		assert.Equal(t, Record{Time: history[0].Time, From: transition.From, Event: transition.Event, To: transition.To}, history[0])
	}
}

func TestMachine_TriggerInvalid(t *testing.T) {
	for _, state := range slot.States {
		for _, event := range slot.Events {
			if _, ok := slot.Lookup(state, event); ok {
				continue
			}
			m := New(3, WithInitialState(state))
			before := m.Context()
			to, err := m.Trigger(event, &slot.Update{CurrentLoop: slot.Ptr(42)}, "ignored")
			var invalid *slot.InvalidTransitionError
			require.True(t, errors.As(err, &invalid), "%s + %s", state, event)
			assert.Equal(t, state, invalid.State)
			assert.Equal(t, event, invalid.Event)
			assert.Equal(t, 3, invalid.SlotIdx)
			assert.Equal(t, state, to)
			assert.Equal(t, state, m.State())
			assert.Equal(t, before, m.Context())
			assert.Empty(t, m.History())
		}
	}
}

func TestMachine_BatchEventsOnlyWhileRunning(t *testing.T) {
	batchEvents := []slot.Event{slot.EventBatchComplete, slot.EventBatchNext, slot.EventAllBatchesDone}
	for _, state := range slot.States {
		m := New(0, WithInitialState(state))
		for _, event := range batchEvents {
			assert.Equal(t, state == slot.StateRunning, m.CanTransition(event), "%s + %s", state, event)
		}
	}
}

func TestMachine_ContextLifecycle(t *testing.T) {
	m := New(0)
	_, err := m.Trigger(slot.EventStartTest, &slot.Update{TestName: slot.Ptr("usb"), TotalLoop: slot.Ptr(10)}, "")
	require.NoError(t, err)
	ctx := m.Context()
	assert.NotNil(t, ctx.StartedAt)
	assert.Equal(t, "usb", ctx.TestName)

	_, err = m.Trigger(slot.EventConfigure, nil, "")
	require.NoError(t, err)
	_, err = m.Trigger(slot.EventRun, nil, "")
	require.NoError(t, err)
	_, err = m.Trigger(slot.EventBatchComplete, &slot.Update{CurrentLoop: slot.Ptr(4)}, "")
	require.NoError(t, err)
	_, err = m.Trigger(slot.EventFail, nil, "batch 2 failed: fail")
	require.NoError(t, err)

	ctx = m.Context()
	assert.Equal(t, slot.StateFailed, m.State())
	assert.Equal(t, "batch 2 failed: fail", ctx.ErrorMessage)
	assert.Equal(t, 1, ctx.ErrorCount)
	assert.Equal(t, 4, ctx.CurrentLoop)

	_, err = m.Trigger(slot.EventStartTest, nil, "")
	require.NoError(t, err)
	ctx = m.Context()
	assert.Empty(t, ctx.ErrorMessage)
	assert.Equal(t, 0, ctx.ErrorCount)
	assert.Equal(t, 0, ctx.RetryCount)
	assert.Equal(t, 0, ctx.CurrentLoop)
	assert.Equal(t, "usb", ctx.TestName)
}

func TestMachine_ResetReplacesContext(t *testing.T) {
	for _, event := range []slot.Event{slot.EventReset, slot.EventStopped} {
		from := slot.StateCompleted
		if event == slot.EventStopped {
			from = slot.StateStopping
		}
		m := New(5, WithInitialState(from))
		m.Annotate(&slot.Update{TestName: slot.Ptr("usb"), CurrentLoop: slot.Ptr(7)})
		_, err := m.Trigger(event, &slot.Update{TestName: slot.Ptr("discarded")}, "")
		require.NoError(t, err)
		ctx := m.Context()
		assert.Equal(t, 5, ctx.SlotIdx)
		assert.Empty(t, ctx.TestName, event)
		assert.Equal(t, 0, ctx.CurrentLoop, event)
		assert.Equal(t, slot.ProcessIdle, ctx.ProcessState)
	}
}

func TestMachine_HistoryCap(t *testing.T) {
	m := New(0, WithInitialState(slot.StateRunning))
	for i := 0; i < 101; i++ {
		_, err := m.Trigger(slot.EventBatchNext, nil, "")
		require.NoError(t, err)
	}
	assert.Len(t, m.History(), 50)
	for i := 0; i < 50; i++ {
		_, err := m.Trigger(slot.EventBatchNext, nil, "")
		require.NoError(t, err)
	}
	assert.Len(t, m.History(), 100)
}

func TestMachine_Observer(t *testing.T) {
	var mux sync.Mutex
	var calls [][2]slot.State
	m := New(2, WithObserver(func(slotIdx int, from, to slot.State) {
		mux.Lock()
		defer mux.Unlock()
		assert.Equal(t, 2, slotIdx)
		calls = append(calls, [2]slot.State{from, to})
	}))
	_, err := m.Trigger(slot.EventStartTest, nil, "")
	require.NoError(t, err)
	_, _ = m.Trigger(slot.EventRun, nil, "")
	m.Force(slot.StateError, "process gone")

	assert.Equal(t, [][2]slot.State{
		{slot.StateIdle, slot.StatePreparing},
		{slot.StatePreparing, slot.StateError},
	}, calls)
	history := m.History()
	require.Len(t, history, 2)
	assert.False(t, history[0].Forced)
	assert.Equal(t, slot.EventStartTest, history[0].Event)
	assert.True(t, history[1].Forced)
	assert.Empty(t, history[1].Event)
	assert.Equal(t, "process gone", history[1].Reason)
}

func TestMachine_ForcedRecordDiffersFromReset(t *testing.T) {
	m := New(0, WithInitialState(slot.StateError))
	_, err := m.Trigger(slot.EventReset, nil, "")
	require.NoError(t, err)
	m.Force(slot.StateError, "user terminated")

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, Record{Time: history[0].Time, From: slot.StateError, Event: slot.EventReset, To: slot.StateIdle}, history[0])
	assert.Equal(t, Record{Time: history[1].Time, From: slot.StateIdle, To: slot.StateError, Forced: true, Reason: "user terminated"}, history[1])
}

func TestMachine_ObserverCommitOrder(t *testing.T) {
	var mux sync.Mutex
	var calls [][2]slot.State
	m := New(0, WithInitialState(slot.StateRunning), WithObserver(func(slotIdx int, from, to slot.State) {
		mux.Lock()
		defer mux.Unlock()
		calls = append(calls, [2]slot.State{from, to})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = m.Trigger(slot.EventBatchNext, nil, "")
				_, _ = m.Trigger(slot.EventPause, nil, "")
				_, _ = m.Trigger(slot.EventResume, nil, "")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Force(slot.StateRunning, "recovered")
			}
		}()
	}
	wg.Wait()

	mux.Lock()
	defer mux.Unlock()
	require.NotEmpty(t, calls)
	assert.Equal(t, slot.StateRunning, calls[0][0])
	for i := 1; i < len(calls); i++ {
		require.Equal(t, calls[i-1][1], calls[i][0], "observer call %d out of commit order", i)
	}
	assert.Equal(t, m.State(), calls[len(calls)-1][1])
}

func TestMachine_ObserverPanicIsRecovered(t *testing.T) {
	m := New(0, WithObserver(func(int, slot.State, slot.State) {
		panic("boom")
	}))
	to, err := m.Trigger(slot.EventConnect, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, slot.StateConnecting, to)
	assert.Equal(t, slot.StateConnecting, m.State())
}

func TestMachine_Snapshot(t *testing.T) {
	m := New(1, WithInitialState(slot.StateRunning))
	m.Annotate(&slot.Update{CurrentLoop: slot.Ptr(3), TotalLoop: slot.Ptr(12)})
	snapshot := m.Snapshot()
	assert.Equal(t, 1, snapshot.SlotIdx)
	assert.True(t, snapshot.IsBusy)
	assert.True(t, snapshot.IsRunning)
	assert.Equal(t, 25.0, snapshot.ProgressPercent)
	assert.Equal(t, slot.ValidEvents(slot.StateRunning), snapshot.ValidEvents)
}

func TestMachine_RandomEventSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New(0, WithHistoryLimit(20))
		events := rapid.SliceOfN(rapid.SampledFrom(slot.Events), 1, 200).Draw(t, "events")
		accepted := 0
		for _, event := range events {
			from := m.State()
			expected, valid := slot.Lookup(from, event)
			to, err := m.Trigger(event, nil, "")
			if valid {
				if err != nil {
					t.Fatalf("%s + %s: unexpected error %v", from, event, err)
				}
				if to != expected {
					t.Fatalf("%s + %s: expected %s, got %s", from, event, expected, to)
				}
				accepted++
			} else {
				if err == nil {
					t.Fatalf("%s + %s: expected error", from, event)
				}
				if m.State() != from {
					t.Fatalf("%s + %s: state changed to %s", from, event, m.State())
				}
			}
			if len(m.History()) > 20 {
				t.Fatalf("history exceeded cap: %d", len(m.History()))
			}
			if ctx := m.Context(); ctx.ErrorCount < 0 || ctx.SlotIdx != 0 {
				t.Fatalf("invalid context: %+v", ctx)
			}
		}
		if accepted <= 20 && len(m.History()) != accepted {
			t.Fatalf("expected %d history records, got %d", accepted, len(m.History()))
		}
	})
}
