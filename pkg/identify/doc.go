// Package identify bounds how fast new gateway sessions may be opened for a
// bot identity.
//
// The platform allows at most `concurrency` session handshakes per bot within
// a rolling window (5 seconds on the wire; the limiter adds a 1 second safety
// margin for a 6 second effective window). Exceeding the budget invalidates
// the session and forces a reconnect, so every shard asks the shared Limiter
// for a slot before sending its handshake:
//
//	limiter := identify.NewLimiter()
//
//	if err := limiter.Wait(ctx, botID); err != nil {
//		return err
//	}
//	// slot granted, send the handshake
//
// Wait never fails because of contention; it suspends the caller until a slot
// becomes available or the context is cancelled. Fairness across waiters is
// best effort.
//
// # Stores
//
// Slot accounting lives behind the Store interface:
//
//   - MemoryStore (default) keeps per-bot windows in process memory. Correct
//     as long as all shards of a bot run in one process.
//   - RedisStore shares one admission budget across processes using an atomic
//     Lua script, for deployments that spread shards over several workers.
//
// Both stores enforce the same invariant: at most `concurrency` reservations
// are granted within any window-length interval per bot.
package identify
