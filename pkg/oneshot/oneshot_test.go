package oneshot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/botkit/pkg/oneshot"
)

func TestDeferred_Complete(t *testing.T) {
	t.Parallel()

	t.Run("first complete wins", func(t *testing.T) {
		t.Parallel()

		d := oneshot.New[int]()
		assert.True(t, d.Complete(42))
		assert.False(t, d.Complete(43))
		assert.False(t, d.Fail(errors.New("too late")))

		v, err := d.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("fail settles with error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		d := oneshot.New[string]()
		assert.True(t, d.Fail(wantErr))
		assert.False(t, d.Complete("late"))

		_, err := d.Await(context.Background())
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("settled reports without blocking", func(t *testing.T) {
		t.Parallel()

		d := oneshot.New[struct{}]()
		assert.False(t, d.Settled())
		d.Complete(struct{}{})
		assert.True(t, d.Settled())
	})
}

func TestDeferred_Await(t *testing.T) {
	t.Parallel()

	t.Run("blocks until settled", func(t *testing.T) {
		t.Parallel()

		d := oneshot.New[int]()
		go func() {
			time.Sleep(20 * time.Millisecond)
			d.Complete(7)
		}()

		v, err := d.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("context cancellation unblocks waiter", func(t *testing.T) {
		t.Parallel()

		d := oneshot.New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := d.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, d.Settled())
	})

	t.Run("all waiters observe the same result", func(t *testing.T) {
		t.Parallel()

		d := oneshot.New[int]()

		var wg sync.WaitGroup
		results := make([]int, 10)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := d.Await(context.Background())
				require.NoError(t, err)
				results[i] = v
			}(i)
		}

		d.Complete(99)
		wg.Wait()

		for _, v := range results {
			assert.Equal(t, 99, v)
		}
	})
}

func TestDeferred_ConcurrentSettle(t *testing.T) {
	t.Parallel()

	d := oneshot.New[int]()

	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if d.Complete(i) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins, "exactly one settle attempt may win")
}
