package gateway

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelCache_EnsureLoaded_RunsOnce(t *testing.T) {
	cache := NewModelCache()
	var calls int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cache.EnsureLoaded("whisper-medium", func() error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.True(t, cache.IsReady("whisper-medium"))
}

func TestModelCache_EnsureLoaded_RetriesAfterFailure(t *testing.T) {
	cache := NewModelCache()

	err := cache.EnsureLoaded("broken-model", func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.False(t, cache.IsReady("broken-model"))

	err = cache.EnsureLoaded("broken-model", func() error { return nil })
	require.NoError(t, err)
	assert.True(t, cache.IsReady("broken-model"))
}

func TestModelCache_DistinctModelsIndependent(t *testing.T) {
	cache := NewModelCache()
	require.NoError(t, cache.EnsureLoaded("a", func() error { return nil }))
	assert.False(t, cache.IsReady("b"))
}
