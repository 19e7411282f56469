package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/service/messaging/memory"
)

type statusChanged struct {
	Status string
}

type batchDone struct {
	Batch int
}

type sink[T any] struct {
	mux    sync.Mutex
	events []*Event[T]
}

func (s *sink[T]) handle(event *Event[T]) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.events = append(s.events, event)
}

func (s *sink[T]) len() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.events)
}

func TestService_Publish(t *testing.T) {
	srv := New()
	defer srv.Close()
	ctx := context.Background()

	status := PublisherOf[statusChanged](srv)
	assert.Same(t, status, PublisherOf[statusChanged](srv))
	require.NoError(t, status.Publish(ctx, NewEvent(&Context{SlotIdx: 1, EventType: "status"}, statusChanged{Status: "idle"})))

	typed := &sink[statusChanged]{}
	all := &sink[any]{}
	SetListenerOf[statusChanged](srv, typed.handle)
	srv.SetListener(all.handle)

	require.NoError(t, status.Publish(ctx, NewEvent(&Context{SlotIdx: 1, EventType: "status"}, statusChanged{Status: "running"})))
	require.NoError(t, PublisherOf[batchDone](srv).Publish(ctx, NewEvent(&Context{SlotIdx: 1, EventType: "batch"}, batchDone{Batch: 2})))

	require.Eventually(t, func() bool { return typed.len() == 1 && all.len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "running", typed.events[0].Data.Status)
	assert.Equal(t, 1, typed.events[0].Context.SlotIdx)
	assert.Equal(t, batchDone{Batch: 2}, all.events[1].Data)
}

func TestService_ListenerPanicKeepsConsuming(t *testing.T) {
	srv := New()
	defer srv.Close()
	received := make(chan string, 2)
	SetListenerOf[statusChanged](srv, func(event *Event[statusChanged]) {
		if event.Data.Status == "panic" {
			panic("boom")
		}
		received <- event.Data.Status
	})
	publisher := PublisherOf[statusChanged](srv)
	require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{}, statusChanged{Status: "panic"})))
	require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{}, statusChanged{Status: "ok"})))
	select {
	case status := <-received:
		assert.Equal(t, "ok", status)
	case <-time.After(time.Second):
		t.Fatal("listener stopped after panic")
	}
}

func TestService_ReplaceListener(t *testing.T) {
	srv := New()
	defer srv.Close()
	first := &sink[any]{}
	second := &sink[any]{}
	srv.SetListener(first.handle)
	srv.SetListener(second.handle)
	require.NoError(t, PublisherOf[batchDone](srv).Publish(context.Background(), NewEvent(&Context{}, batchDone{Batch: 1})))
	require.Eventually(t, func() bool { return second.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, first.len())
}

func TestService_FailingHandlerDeadLetters(t *testing.T) {
	srv := New(WithNewMemoryQueueConfig(func(string) memory.Config {
		return memory.Config{MaxRetries: 2, RetryDelay: time.Millisecond, DeadLetter: true, QueueBuffer: 10}
	}))
	defer srv.Close()
	var attempts atomic.Int32
	SetListenerOf[statusChanged](srv, func(event *Event[statusChanged]) {
		attempts.Add(1)
		panic("boom")
	})
	require.NoError(t, PublisherOf[statusChanged](srv).Publish(context.Background(), NewEvent(&Context{}, statusChanged{Status: "running"})))

	require.Eventually(t, func() bool { return srv.DeadLetters() == 1 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 3, attempts.Load())
}
