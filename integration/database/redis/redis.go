package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config maps Redis connection settings to environment variables.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a Redis client, retrying transient dial failures with
// exponential backoff and verifying connectivity with a ping before
// returning. The whole process is bounded by ConnectTimeout.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if u, err := url.Parse(cfg.ConnectionURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		return nil, fmt.Errorf("%w: %s", ErrFailedToParseRedisConnString, cfg.ConnectionURL)
	}

	opts, err := goredis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToParseRedisConnString, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	attempts := max(cfg.RetryAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			backoff := cfg.RetryInterval * (1 << (attempt - 1))
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, errors.Join(ErrRedisNotReady, ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			lastErr = err
			_ = client.Close()
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return client, nil
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// Healthcheck returns a ping-based probe for readiness and liveness checks.
func Healthcheck(client goredis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
