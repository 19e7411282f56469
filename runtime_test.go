package slotor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/internal/logging"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/worker"
)

func TestRuntime_EnqueueReportBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Slots.Count = 1
	cfg.Worker.TopCapacity = 1
	cfg.Transport.PublishTimeout = 20 * time.Millisecond
	srv, err := New(WithConfig(cfg), WithLogger(logging.Nop()))
	require.NoError(t, err)
	r := srv.Runtime()
	require.True(t, r.Pool().EnqueueTop(context.Background(), "filler", nil, worker.PriorityNormal, false))

	done := make(chan struct{})
	go func() {
		r.Machines().Must(0).Force(slot.StateError, "harness lost")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("terminal report blocked on a full top queue")
	}
	assert.Equal(t, 1, r.Pool().Pending().Top)
	assert.Equal(t, slot.StateError, r.Machines().Must(0).State())
}
