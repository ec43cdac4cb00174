// Package async provides a small future abstraction for fire-and-observe
// background work.
//
// Exec runs a function on its own goroutine and returns a Future handle for
// the error. The gateway uses it for work that must not block the event loop
// but whose failure still matters, such as waiting for an identify admission
// slot while other frames keep flowing:
//
//	fut := async.Exec(ctx, conn, func(ctx context.Context, c *Conn) error {
//		if err := limiter.Wait(ctx, c.BotID()); err != nil {
//			return err
//		}
//		return c.SendIdentify(ctx)
//	})
//
//	// ... later, or on another goroutine:
//	if err := fut.Await(); err != nil {
//		log.Error("identify failed", "error", err)
//	}
//
// AwaitWithTimeout bounds the wait; IsComplete polls without blocking.
package async
