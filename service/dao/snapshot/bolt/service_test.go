package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/model/slot"
	"github.com/viant/slotor/service/dao/snapshot/storetest"
)

func TestService(t *testing.T) {
	srv, err := New(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	defer srv.Close()
	storetest.Run(t, srv)
}

func TestService_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "slots.db")
	srv, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, srv.Save(context.Background(), &slot.Snapshot{SlotIdx: 4, State: slot.StateCompleted}))
	require.NoError(t, srv.Close())

	srv, err = New(dbPath)
	require.NoError(t, err)
	defer srv.Close()
	assert.Equal(t, dbPath, srv.Path())
	loaded, err := srv.Load(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, slot.StateCompleted, loaded.State)
}
