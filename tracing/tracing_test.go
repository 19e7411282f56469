package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_File(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.json")
	require.NoError(t, Init("slotor", "0.0.1", fname))
	require.NoError(t, Init("ignored", "0.0.2", ""))

	ctx, span := Start(context.Background(), "batch.execute", 1)
	span.SetInt("loop_count", 10).SetString("drive", "E")
	current, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.NotNil(t, current)

	_, child := Start(ctx, "batch.run", 1)
	child.End(errors.New("batch failed"))
	span.End(nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "batch.execute")
	assert.Contains(t, string(data), "slot.idx")
	assert.Contains(t, string(data), "batch failed")
	require.NoError(t, Shutdown(context.Background()))
}

func TestSpan_Nil(t *testing.T) {
	var span *Span
	assert.Nil(t, span.SetInt("k", 1))
	assert.Nil(t, span.SetString("k", "v"))
	span.End(errors.New("ignored"))
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
