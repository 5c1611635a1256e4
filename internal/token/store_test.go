package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EmptyReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Access(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SaveReadClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "access-1", "refresh-1"))

	access, err := store.Access(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", access)

	refresh, err := store.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)

	require.NoError(t, store.Clear(ctx))

	_, err = store.Access(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SaveOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "access-1", "refresh-1"))
	require.NoError(t, store.Save(ctx, "access-2", "refresh-2"))

	access, err := store.Access(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
}
