package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/botkit/integration/database/redis"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := redis.Connect(ctx, redis.Config{})
	assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(ctx, redis.Config{ConnectionURL: "http://localhost:6379"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)

	_, err = redis.Connect(ctx, redis.Config{ConnectionURL: "redis://localhost:6379/not-a-db"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Now()

	_, err := redis.Connect(ctx, redis.Config{
		// Reserved TEST-NET address, nothing listens there.
		ConnectionURL:  "redis://192.0.2.1:6379/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: 500 * time.Millisecond,
	})
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	assert.Less(t, time.Since(start), 5*time.Second, "connect must respect its timeout")
}
