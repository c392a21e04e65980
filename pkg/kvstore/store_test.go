package kvstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/config"
)

// testStoreContract exercises the behavior every backend must share.
func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	key := fmt.Sprintf("myGarden-%s", t.Name())

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(ctx, key+"-absent")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte(`[{"id":1}]`)))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(got))
	})

	t.Run("set replaces whole value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte(`[{"id":1},{"id":2},{"id":3}]`)))
		require.NoError(t, store.Set(ctx, key, []byte(`[]`)))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))
	})

	t.Run("empty value is not absent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key+"-empty", []byte{}))
		got, err := store.Get(ctx, key+"-empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key+"-a", []byte("a")))
		require.NoError(t, store.Set(ctx, key+"-b", []byte("b")))
		a, err := store.Get(ctx, key+"-a")
		require.NoError(t, err)
		assert.Equal(t, "a", string(a))
	})

	t.Run("concurrent writers leave one complete value", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Set(ctx, key+"-race", []byte(fmt.Sprintf(`[{"id":%d}]`, i))))
			}()
		}
		wg.Wait()

		got, err := store.Get(ctx, key+"-race")
		require.NoError(t, err)
		assert.Regexp(t, `^\[\{"id":\d\}\]$`, string(got))
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := store.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_SetHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemoryStore().Set(ctx, "k", nil), context.Canceled)
}

func TestOpen_Memory(t *testing.T) {
	store, err := Open(context.Background(), &config.StorageConfig{Backend: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.StorageConfig{Backend: "etcd"}, zap.NewNop())
	assert.ErrorContains(t, err, "etcd")
}
