package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/decalflow/core"
)

func TestInMemoryStore_LazyCreateAndSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Empty(t, sess.Items)

	sess.AddItem(core.CartItem{DesignID: "ignored"})
	again, _ := store.Get(ctx, "s1")
	assert.Empty(t, again.Items)
}

func TestInMemoryStore_CartOperations(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	sess, err := store.AddItem(ctx, "s1", core.CartItem{DesignID: "d1", Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, sess.Items, 1)

	_, _ = store.AddItem(ctx, "s1", core.CartItem{DesignID: "d2", Quantity: 1})
	sess, err = store.RemoveItem(ctx, "s1", "d1")
	require.NoError(t, err)
	assert.Equal(t, []core.CartItem{{DesignID: "d2", Quantity: 1}}, sess.Items)

	require.NoError(t, store.Clear(ctx, "s1"))
	sess, _ = store.Get(ctx, "s1")
	assert.Empty(t, sess.Items)

	require.NoError(t, store.Clear(ctx, "unknown"))
}

func TestInMemoryStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddItem(ctx, "s1", core.CartItem{DesignID: "d1", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, _ := store.Get(ctx, "s1")
	require.Len(t, sess.Items, 1)
	assert.Equal(t, 20, sess.Items[0].Quantity)
}
