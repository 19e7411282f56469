package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/event"
	"github.com/viant/slotor/service/monitor"
)

func TestEventTransport(t *testing.T) {
	events := event.New()
	defer events.Close()
	transport := NewEventTransport(events, 0)

	var mux sync.Mutex
	var types []string
	events.SetListener(func(e *event.Event[any]) {
		mux.Lock()
		defer mux.Unlock()
		types = append(types, e.Context.EventType)
	})
	updates := make(chan Update, 1)
	event.SetListenerOf[Update](events, func(e *event.Event[Update]) {
		updates <- e.Data
	})

	ctx := context.Background()
	require.NoError(t, transport.SendUpdate(ctx, &Update{SlotIdx: 2, Status: slot.StateRunning, CurrentLoop: 4, TotalLoop: 10, ProgressPercent: 40}))
	require.NoError(t, transport.SendError(ctx, &ErrorReport{SlotIdx: 2, Code: "batch_failed", Message: "batch 2 failed: fail"}))
	require.NoError(t, transport.SendTermination(ctx, &Termination{SlotIdx: 2, PID: 77, Reason: monitor.ReasonUserTerminated, WasRunning: true}))

	select {
	case update := <-updates:
		assert.Equal(t, slot.StateRunning, update.Status)
		assert.Equal(t, 40.0, update.ProgressPercent)
		assert.False(t, update.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("update not delivered")
	}
	require.Eventually(t, func() bool {
		mux.Lock()
		defer mux.Unlock()
		return len(types) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{EventUpdate, EventError, EventTermination}, types)
}

func TestEventTransport_NoListener(t *testing.T) {
	events := event.New()
	defer events.Close()
	transport := NewEventTransport(events, 10*time.Millisecond)
	for i := 0; i < 500; i++ {
		require.NoError(t, transport.SendUpdate(context.Background(), &Update{SlotIdx: 0}))
	}
}
