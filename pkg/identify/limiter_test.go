package identify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/botkit/pkg/identify"
)

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("grants immediately when slots available", func(t *testing.T) {
		t.Parallel()

		limiter := identify.NewLimiter(
			identify.WithConcurrency(2),
			identify.WithWindow(time.Second),
		)

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), "bot-1"))
		require.NoError(t, limiter.Wait(context.Background(), "bot-1"))
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("spaces admissions one window apart for concurrency 1", func(t *testing.T) {
		t.Parallel()

		const window = 150 * time.Millisecond
		limiter := identify.NewLimiter(identify.WithWindow(window))

		var mu sync.Mutex
		var grants []time.Time

		var wg sync.WaitGroup
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, limiter.Wait(context.Background(), "bot-1"))
				mu.Lock()
				grants = append(grants, time.Now())
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, grants, 3)
		for i := 1; i < len(grants); i++ {
			gap := grants[i].Sub(grants[i-1])
			assert.GreaterOrEqual(t, gap, window-10*time.Millisecond,
				"admissions %d and %d must be at least one window apart", i-1, i)
		}
	})

	t.Run("different bots never contend", func(t *testing.T) {
		t.Parallel()

		limiter := identify.NewLimiter(identify.WithWindow(time.Second))

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), "bot-a"))
		require.NoError(t, limiter.Wait(context.Background(), "bot-b"))
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("context cancellation unblocks waiter", func(t *testing.T) {
		t.Parallel()

		limiter := identify.NewLimiter(identify.WithWindow(time.Minute))
		require.NoError(t, limiter.Wait(context.Background(), "bot-1"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Wait(ctx, "bot-1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewLimiterFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		limiter, err := identify.NewLimiterFromConfig(identify.Config{
			Concurrency: 16,
			Window:      6 * time.Second,
		})
		require.NoError(t, err)
		assert.NotNil(t, limiter)
	})

	t.Run("rejects non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		_, err := identify.NewLimiterFromConfig(identify.Config{Concurrency: 0, Window: time.Second})
		assert.ErrorIs(t, err, identify.ErrInvalidConcurrency)
	})

	t.Run("rejects non-positive window", func(t *testing.T) {
		t.Parallel()

		_, err := identify.NewLimiterFromConfig(identify.Config{Concurrency: 1})
		assert.ErrorIs(t, err, identify.ErrInvalidWindow)
	})
}
