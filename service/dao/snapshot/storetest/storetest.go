// Package storetest verifies snapshot.Store implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/dao"
	"github.com/viant/slotor/service/dao/snapshot"
)

// Run exercises the store contract against an empty store
func Run(t *testing.T, store snapshot.Store) {
	t.Helper()
	ctx := context.Background()
	startedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	snapshots := []*slot.Snapshot{
		{SlotIdx: 2, State: slot.StateRunning, IsBusy: true, IsRunning: true, ValidEvents: []slot.Event{slot.EventStop}, Context: slot.Context{SlotIdx: 2, TestName: "t2", CurrentLoop: 3, TotalLoop: 10, StartedAt: &startedAt}, ProgressPercent: 30},
		{SlotIdx: 0, State: slot.StateIdle, Context: slot.Context{SlotIdx: 0}},
		{SlotIdx: 1, State: slot.StateFailed, Context: slot.Context{SlotIdx: 1, ErrorMessage: "boom", ErrorCount: 1}},
	}
	for _, s := range snapshots {
		require.NoError(t, store.Save(ctx, s))
	}

	loaded, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, slot.StateRunning, loaded.State)
	assert.Equal(t, "t2", loaded.Context.TestName)
	assert.Equal(t, 3, loaded.Context.CurrentLoop)
	require.NotNil(t, loaded.Context.StartedAt)
	assert.True(t, startedAt.Equal(*loaded.Context.StartedAt))
	assert.Equal(t, []slot.Event{slot.EventStop}, loaded.ValidEvents)

	loaded.Context.TestName = "mutated"
	again, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "t2", again.Context.TestName)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, s := range all {
		assert.Equal(t, i, s.SlotIdx)
	}

	failed, err := store.List(ctx, dao.NewParameter(dao.ParameterState, string(slot.StateFailed)))
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Context.ErrorMessage)

	require.NoError(t, store.Save(ctx, &slot.Snapshot{SlotIdx: 1, State: slot.StateIdle}))
	replaced, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, slot.StateIdle, replaced.State)

	require.NoError(t, store.Delete(ctx, 0))
	_, err = store.Load(ctx, 0)
	assert.True(t, errors.Is(err, dao.ErrNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, 0), dao.ErrNotFound))

	assert.True(t, errors.Is(store.Save(ctx, nil), dao.ErrNilEntity))
	assert.True(t, errors.Is(store.Save(ctx, &slot.Snapshot{SlotIdx: -1}), dao.ErrInvalidID))
}
