package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	assert.True(t, IsNoData(err))

	require.NoError(t, store.Set(ctx, "k", "v1"))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	require.NoError(t, store.Set(ctx, "k", "v2"))
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	require.NoError(t, store.Remove(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.True(t, IsNoData(err))

	// Removing an absent key is not an error
	assert.NoError(t, store.Remove(ctx, "k"))
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := &NoopStore{}

	require.NoError(t, store.Set(ctx, "k", "v"))

	_, err := store.Get(ctx, "k")
	assert.True(t, IsNoData(err))

	assert.NoError(t, store.Remove(ctx, "k"))
}
