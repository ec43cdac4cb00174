package identify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/botkit/pkg/identify"
)

func TestMemoryStore_Reserve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	const window = 200 * time.Millisecond

	t.Run("grants up to concurrency within one window", func(t *testing.T) {
		t.Parallel()

		store := identify.NewMemoryStore()

		for i := range 3 {
			ok, _, err := store.Reserve(ctx, "bot-1", 3, window)
			require.NoError(t, err)
			assert.True(t, ok, "reservation %d should be granted", i)
		}

		ok, retryAfter, err := store.Reserve(ctx, "bot-1", 3, window)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Greater(t, retryAfter, time.Duration(0))
		assert.LessOrEqual(t, retryAfter, window)
	})

	t.Run("refills after window elapses", func(t *testing.T) {
		t.Parallel()

		store := identify.NewMemoryStore()

		ok, _, err := store.Reserve(ctx, "bot-1", 1, window)
		require.NoError(t, err)
		require.True(t, ok)

		ok, _, err = store.Reserve(ctx, "bot-1", 1, window)
		require.NoError(t, err)
		require.False(t, ok)

		time.Sleep(window + 10*time.Millisecond)

		ok, _, err = store.Reserve(ctx, "bot-1", 1, window)
		require.NoError(t, err)
		assert.True(t, ok, "expired window must reset and grant")
	})

	t.Run("bots are isolated", func(t *testing.T) {
		t.Parallel()

		store := identify.NewMemoryStore()

		ok, _, err := store.Reserve(ctx, "bot-a", 1, window)
		require.NoError(t, err)
		require.True(t, ok)

		ok, _, err = store.Reserve(ctx, "bot-b", 1, window)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
