package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmtrack/m/internal/store"
)

func TestMemStoreGetPut(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	_, ok, err := st.Get(ctx, "ns", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Put(ctx, "ns", "a", []byte(`{"v":1}`)))
	rec, ok, err := st.Get(ctx, "ns", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(rec))

	// Overwrite replaces the whole record.
	require.NoError(t, st.Put(ctx, "ns", "a", []byte(`{"v":2}`)))
	rec, _, err = st.Get(ctx, "ns", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(rec))
}

func TestMemStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	ok, err := st.Delete(ctx, "ns", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Put(ctx, "ns", "a", []byte(`1`)))
	ok, err = st.Delete(ctx, "ns", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = st.Get(ctx, "ns", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemStoreScanPrefixInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	require.NoError(t, st.Put(ctx, "medicines/p1", "m1", []byte(`1`)))
	require.NoError(t, st.Put(ctx, "medicines/p2", "m2", []byte(`2`)))
	require.NoError(t, st.Put(ctx, "medicines/p1", "m3", []byte(`3`)))
	require.NoError(t, st.Put(ctx, "requests/p1", "r1", []byte(`4`)))

	entries, err := st.ScanPrefix(ctx, "medicines/")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "m1", entries[0].Key)
	assert.Equal(t, "m2", entries[1].Key)
	assert.Equal(t, "m3", entries[2].Key)

	// Overwriting keeps the original position.
	require.NoError(t, st.Put(ctx, "medicines/p1", "m1", []byte(`9`)))
	entries, err = st.ScanPrefix(ctx, "medicines/")
	require.NoError(t, err)
	assert.Equal(t, "m1", entries[0].Key)
	assert.Equal(t, []byte(`9`), entries[0].Record)

	// Deleted records drop out of scans.
	_, err = st.Delete(ctx, "medicines/p2", "m2")
	require.NoError(t, err)
	entries, err = st.ScanPrefix(ctx, "medicines/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m1", entries[0].Key)
	assert.Equal(t, "m3", entries[1].Key)
}

func TestKeyedMutex(t *testing.T) {
	km := store.NewKeyedMutex()
	km.Lock("a")
	done := make(chan struct{})
	go func() {
		// Independent key must not block.
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")

	// Same key is reusable after unlock.
	km.Lock("a")
	km.Unlock("a")
}
