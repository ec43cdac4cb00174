package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/botkit/pkg/async"
)

func TestExec(t *testing.T) {
	t.Parallel()

	t.Run("returns the function error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		fut := async.Exec(context.Background(), "payload", func(ctx context.Context, s string) error {
			assert.Equal(t, "payload", s)
			return wantErr
		})
		assert.ErrorIs(t, fut.Await(), wantErr)
	})

	t.Run("nil error on success", func(t *testing.T) {
		t.Parallel()

		fut := async.Exec(context.Background(), 1, func(ctx context.Context, _ int) error {
			return nil
		})
		require.NoError(t, fut.Await())
		assert.True(t, fut.IsComplete())
	})

	t.Run("pre-cancelled context skips the function", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ran := false
		fut := async.Exec(ctx, struct{}{}, func(ctx context.Context, _ struct{}) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, fut.Await(), context.Canceled)
		assert.False(t, ran)
	})

	t.Run("await with timeout", func(t *testing.T) {
		t.Parallel()

		block := make(chan struct{})
		fut := async.Exec(context.Background(), block, func(ctx context.Context, ch chan struct{}) error {
			<-ch
			return nil
		})

		err := fut.AwaitWithTimeout(20 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)
		assert.False(t, fut.IsComplete())

		close(block)
		require.NoError(t, fut.Await())
	})
}
