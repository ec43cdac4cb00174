// Package redis provides Redis client initialization and health checking.
//
// The package wraps the go-redis client with URL validation, retry logic and
// a ping verification so a returned client is known to be reachable. The bot
// uses it to back the identify admission store when shards run in more than
// one process.
//
// # Configuration
//
// Configuration comes from the environment via the Config struct:
//
//	cfg := redis.Config{ConnectionURL: "redis://localhost:6379/0"}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
//
//	limiter := identify.NewLimiter(identify.WithStore(identify.NewRedisStore(client)))
//
// Both redis:// and rediss:// (TLS) URL schemes are accepted; anything else
// fails with ErrFailedToParseRedisConnString. Connection establishment
// retries with exponential backoff (RetryAttempts, RetryInterval) under the
// overall ConnectTimeout and respects context cancellation.
//
// # Health checking
//
// Healthcheck returns a ping-based probe for readiness endpoints:
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil { ... }
//
// Errors are stable sentinels checked with errors.Is: ErrEmptyConnectionURL,
// ErrFailedToParseRedisConnString, ErrRedisNotReady, ErrHealthcheckFailed.
package redis
