package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Rate-limit response headers consumed on every attempt.
const (
	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerResetAfter = "X-RateLimit-Reset-After"
	headerBucket     = "X-RateLimit-Bucket"
	headerGlobal     = "X-RateLimit-Global"
	headerRetryAfter = "Retry-After"
)

// Bucket tracks the client-side view of one vendor rate-limit grouping.
// It is mutated only by the executor, under mu, once per completed attempt.
type Bucket struct {
	mu sync.Mutex

	key       string
	limit     int
	remaining int
	resetAt   time.Time
	// Vendor-reported bucket identity. Only used to warn when it drifts for
	// the same key, which signals a key-derivation bug.
	observedName string

	lastUsed time.Time
}

// update refreshes the bucket from the rate-limit headers of a response.
// Header values win when present; otherwise the token count is decremented
// for the attempt that just completed. Must be called with mu held.
func (b *Bucket) update(header http.Header, logger *slog.Logger) {
	b.lastUsed = time.Now()

	if v := header.Get(headerLimit); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			b.limit = limit
		}
	}

	if v := header.Get(headerRemaining); v != "" {
		if remaining, err := strconv.Atoi(v); err == nil {
			b.remaining = remaining
		}
	} else {
		b.remaining--
	}

	if v := header.Get(headerResetAfter); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil {
			b.resetAt = time.Now().Add(time.Duration(seconds * float64(time.Second)))
		}
	}

	if name := header.Get(headerBucket); name != "" {
		if b.observedName != "" && b.observedName != name {
			logger.Warn("vendor bucket name changed for key",
				slog.String("bucket_key", b.key),
				slog.String("previous", b.observedName),
				slog.String("current", name))
		}
		b.observedName = name
	}
}

// waitDuration reports how long the next request must sleep before sending.
// Must be called with mu held.
func (b *Bucket) waitDuration(now time.Time) time.Duration {
	if b.remaining > 0 || b.resetAt.IsZero() {
		return 0
	}
	if wait := b.resetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// bucketCache owns all buckets, keyed by route classifier. Lookups take the
// cache lock; request accounting takes only the bucket's own lock so
// unrelated routes never contend.
type bucketCache struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func newBucketCache() *bucketCache {
	return &bucketCache{buckets: make(map[string]*Bucket)}
}

func (c *bucketCache) get(key string) *Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[key]
	if !ok {
		b = &Bucket{key: key, remaining: 1, lastUsed: time.Now()}
		c.buckets[key] = b
	}
	return b
}

// removeExpired evicts buckets unused for evictAfter past their reset.
// A bucket is never evicted before its reset instant has passed.
func (c *bucketCache) removeExpired(now time.Time, evictAfter time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, b := range c.buckets {
		b.mu.Lock()
		idle := b.lastUsed
		if b.resetAt.After(idle) {
			idle = b.resetAt
		}
		expired := now.Sub(idle) > evictAfter
		b.mu.Unlock()

		if expired {
			delete(c.buckets, key)
			removed++
		}
	}
	return removed
}

func (c *bucketCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}
