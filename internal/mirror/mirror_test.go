package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "run-1", []byte(`{"status":"running"}`), 0))

	data, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"status":"running"}`), data)

	missing, err := store.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "run-1", []byte("v1"), 0))
	require.NoError(t, store.Put(ctx, "run-1", []byte("v2"), 0))

	data, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "run-1", []byte("data"), time.Minute))

	data, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.NotNil(t, data)

	now = now.Add(2 * time.Minute)
	data, err = store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestBadgerStore_PutGet(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "run-1", []byte(`{"status":"completed"}`), time.Hour))

	data, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"status":"completed"}`), data)

	missing, err := store.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "run-1", []byte("snapshot"), 0))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot"), data)
}
