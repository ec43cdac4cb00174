package gateway

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/dmitrymomot/botkit/core/logger"
)

// heartbeatLoop sends a heartbeat with the current sequence every interval,
// after an initial random jitter of at most one interval. A beat whose
// predecessor was never acknowledged marks the connection as a zombie: the
// socket is closed with a private code and the close-handling path decides
// what follows. The loop dies with the session context.
func (s *session) heartbeatLoop(interval time.Duration) {
	c := s.conn

	jitter := time.Duration(rand.Int64N(int64(interval)))
	if err := sleepContext(s.ctx, jitter); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !c.acked.Swap(false) {
			c.logger.Warn("heartbeat unacknowledged, closing zombie connection")
			s.close(closeZombieConnection, "heartbeat ack timeout")
			return
		}

		if err := s.sendHeartbeat(); err != nil {
			if s.ctx.Err() == nil {
				c.logger.Warn("heartbeat send failed", logger.Error(err))
			}
			return
		}

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
