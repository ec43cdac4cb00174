package async

import (
	"context"
	"time"
)

// Future is the handle of a computation started with Exec.
type Future struct {
	err  error
	done chan struct{}
}

// Await blocks until the computation completes and returns its error.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits for completion up to the given timeout and returns
// ErrTimeout if the computation is still running afterwards.
func (f *Future) AwaitWithTimeout(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.err
	case <-timer.C:
		return ErrTimeout
	}
}

// IsComplete checks completion without blocking.
func (f *Future) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec runs fn on a new goroutine and returns a Future for its error.
// A context that is already cancelled fails the future without running fn.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *Future {
	f := &Future{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.err = fn(ctx, param)
	}()

	return f
}
