package identify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// reserveScript implements the fixed-window reservation atomically: the first
// reservation of a window creates the counter with a TTL, later ones bump it.
// Returns {granted, remaining-window-millis}.
var reserveScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if count <= tonumber(ARGV[2]) then
	return {1, ttl}
end
return {0, ttl}
`)

// RedisStore implements Store on a shared Redis instance so shards spread
// across processes draw from one admission budget per bot.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "identify:" key namespace.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client:    client,
		keyPrefix: "identify:",
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs
}

// Reserve claims a slot via the atomic reservation script.
func (rs *RedisStore) Reserve(ctx context.Context, botID string, concurrency int, windowLen time.Duration) (bool, time.Duration, error) {
	key := rs.keyPrefix + botID

	result, err := reserveScript.Run(ctx, rs.client, []string{key},
		windowLen.Milliseconds(), concurrency).Slice()
	if err != nil {
		return false, 0, err
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected reservation script reply: %v", result)
	}

	granted, ok := result[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected reservation script reply: %v", result)
	}
	ttlMillis, ok := result[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected reservation script reply: %v", result)
	}

	// PTTL reports -1/-2 when the key vanished between calls; treat it as an
	// expired window so the caller re-reserves immediately.
	retryAfter := time.Duration(0)
	if ttlMillis > 0 {
		retryAfter = time.Duration(ttlMillis) * time.Millisecond
	}

	return granted == 1, retryAfter, nil
}
