package artifact

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decalflow/core"
)

var _ core.ArtifactStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveGetIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	data := []byte("hello")

	uri, err := store.Save(ctx, "designs", "a1", data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "memory://designs/a1", uri)

	data[0] = 'H'
	out, err := store.Get(ctx, "designs", "a1")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	out[0] = 'x'
	out2, _ := store.Get(ctx, "designs", "a1")
	assert.Equal(t, "hello", string(out2))

	ct, ok := store.ContentType("designs", "a1")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
}

func TestInMemoryStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_, _ = store.Save(ctx, "s1", "b", []byte("2"), "")
	_, _ = store.Save(ctx, "s1", "a", []byte("1"), "")
	_, _ = store.Save(ctx, "s2", "c", []byte("3"), "")

	ids, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "s1", "a"))
	_, err = store.Get(ctx, "s1", "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "s1", "a"), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing", "a"), ErrNotFound)

	ids, _ = store.List(ctx, "missing")
	assert.Empty(t, ids)
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewInMemoryStore().Save(ctx, "n", "id", nil, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("a%02d", i)
			_, err := store.Save(ctx, "n", id, []byte(id), "")
			assert.NoError(t, err)
			_, err = store.Get(ctx, "n", id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	ids, _ := store.List(ctx, "n")
	assert.Len(t, ids, 50)
}
