package oneshot

import (
	"context"
	"sync"
)

// Deferred is a single-assignment container shared between goroutines.
// The zero value is not usable; create instances with New.
type Deferred[T any] struct {
	value T
	err   error
	once  sync.Once
	done  chan struct{}
}

// New creates an unsettled deferred value.
func New[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Complete settles the deferred with a value. It reports whether this call
// won the settle race; false means the deferred was already settled.
func (d *Deferred[T]) Complete(value T) bool {
	settled := false
	d.once.Do(func() {
		d.value = value
		settled = true
		close(d.done)
	})
	return settled
}

// Fail settles the deferred with an error. It reports whether this call won
// the settle race; false means the deferred was already settled.
func (d *Deferred[T]) Fail(err error) bool {
	settled := false
	d.once.Do(func() {
		d.err = err
		settled = true
		close(d.done)
	})
	return settled
}

// Await blocks until the deferred is settled or ctx is cancelled.
// On cancellation the context error is returned and the deferred stays
// unsettled for other waiters.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the deferred is settled,
// for use in select statements.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Settled checks completion without blocking.
func (d *Deferred[T]) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}
