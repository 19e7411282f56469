package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/service/dao/snapshot/storetest"
)

func TestService(t *testing.T) {
	srv, err := New(context.Background(), filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	storetest.Run(t, srv)
}

func TestService_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	srv, err := New(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot-9.json"), []byte("{broken"), 0o644))

	list, err := srv.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}
