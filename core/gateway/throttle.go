package gateway

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// The vendor allows 120 gateway commands per connection per minute.
// Keeping a small burst and paying for it with a slower steady rate leaves
// headroom for heartbeats even when callers spike.
const (
	commandsPerMinute = 120
	commandBurst      = 5
)

// sendThrottle paces outbound gateway commands. One throttle per session:
// a fresh socket gets a fresh budget.
type sendThrottle struct {
	limiter *rate.Limiter
}

func newSendThrottle() *sendThrottle {
	return &sendThrottle{
		limiter: rate.NewLimiter(
			rate.Every(time.Minute/(commandsPerMinute-commandBurst)),
			commandBurst,
		),
	}
}

func (t *sendThrottle) wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
