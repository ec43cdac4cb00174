// Package oneshot provides a write-once deferred value for coordinating
// producers and consumers across goroutines.
//
// A Deferred[T] starts empty and is settled exactly once, either with a value
// (Complete) or an error (Fail). Every settle attempt after the first is
// rejected and reported to the caller, which makes the type suitable for
// "first writer wins" protocols such as an interaction's initial response
// slot: many code paths may race to produce the response, but only one may
// actually send it.
//
// # Usage
//
//	slot := oneshot.New[Message]()
//
//	go func() {
//		msg, err := produce()
//		if err != nil {
//			slot.Fail(err)
//			return
//		}
//		slot.Complete(msg)
//	}()
//
//	msg, err := slot.Await(ctx)
//
// Await blocks until the deferred is settled or the context is cancelled.
// Done exposes the underlying channel for use in select statements.
package oneshot
