package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, _, err := store.Get(context.Background(), "quote_history.json")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_PutGetRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rev, err := store.Put(ctx, "recipients.json", []byte(`{"recipients":[]}`), "")
	require.NoError(t, err)
	assert.NotEmpty(t, rev)

	data, gotRev, err := store.Get(ctx, "recipients.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipients":[]}`, string(data))
	assert.Equal(t, rev, gotRev)
}

func TestMemoryStore_ConditionalPut(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rev, err := store.Put(ctx, "quote_history.json", []byte(`{"quotes":[]}`), "")
	require.NoError(t, err)

	t.Run("current revision succeeds", func(t *testing.T) {
		next, err := store.Put(ctx, "quote_history.json", []byte(`{"quotes":[{}]}`), rev)
		require.NoError(t, err)
		assert.NotEqual(t, rev, next)
	})

	t.Run("stale revision rejected", func(t *testing.T) {
		_, err := store.Put(ctx, "quote_history.json", []byte(`{}`), rev)
		require.Error(t, err)
		assert.True(t, domain.IsStaleWrite(err))
	})

	t.Run("conditional write to missing key rejected", func(t *testing.T) {
		_, err := store.Put(ctx, "missing.json", []byte(`{}`), domain.Revision("1"))
		require.Error(t, err)
		assert.True(t, domain.IsStaleWrite(err))
	})
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Put(ctx, "doc.json", []byte(`{"a":1}`), "")
	require.NoError(t, err)

	data, _, err := store.Get(ctx, "doc.json")
	require.NoError(t, err)

	data[0] = 'X'

	again, _, err := store.Get(ctx, "doc.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again))
}

func TestMemoryStore_Seed(t *testing.T) {
	store := NewMemoryStore()

	store.Seed("subscribers.json", []byte(`{"subscribers":[]}`))

	data, rev, err := store.Get(context.Background(), "subscribers.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"subscribers":[]}`, string(data))
	assert.NotEmpty(t, rev)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("doc.json", []byte(`{}`))

	store.Delete("doc.json")

	_, _, err := store.Get(context.Background(), "doc.json")
	assert.True(t, domain.IsNotFound(err))
}

// TestMemoryStore_ConcurrentConditionalWrites verifies that of N writers
// racing on the same revision, exactly one wins.
func TestMemoryStore_ConcurrentConditionalWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rev, err := store.Put(ctx, "quote_history.json", []byte(`{"quotes":[]}`), "")
	require.NoError(t, err)

	const writers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		stale     int
	)

	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := store.Put(ctx, "quote_history.json", []byte(`{"quotes":[{}]}`), rev)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case domain.IsStaleWrite(err):
				stale++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, stale)
}

func TestMemoryStore_HealthCheck(t *testing.T) {
	store := NewMemoryStore()

	assert.Equal(t, "blob-store", store.Name())
	assert.NoError(t, store.Check(context.Background()))
}
