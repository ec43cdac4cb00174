package identify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Vendor window plus safety margin. The platform counts handshakes over a
// 5 second window; the extra second absorbs clock skew between us and the
// vendor edge.
const (
	vendorWindow  = 5 * time.Second
	safetyMargin  = 1 * time.Second
	DefaultWindow = vendorWindow + safetyMargin
)

// DefaultConcurrency is the slot budget assigned to bots without a
// vendor-negotiated max_concurrency.
const DefaultConcurrency = 1

// Store reserves identify slots for a bot identity. Implementations must be
// safe for concurrent use and must never grant more than concurrency slots
// within any window-length interval for the same bot.
type Store interface {
	// Reserve attempts to claim one slot. When no slot is available it
	// returns ok=false together with the time remaining until the current
	// window ends.
	Reserve(ctx context.Context, botID string, concurrency int, window time.Duration) (ok bool, retryAfter time.Duration, err error)
}

// Config maps identify admission settings to environment variables.
type Config struct {
	Concurrency int           `env:"GATEWAY_IDENTIFY_CONCURRENCY" envDefault:"1"`
	Window      time.Duration `env:"GATEWAY_IDENTIFY_WINDOW" envDefault:"6s"`
}

// Limiter grants identify slots, suspending callers until admission.
type Limiter struct {
	store       Store
	concurrency int
	window      time.Duration
	logger      *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(l *Limiter) {
		if store != nil {
			l.store = store
		}
	}
}

// WithConcurrency sets the vendor-assigned max parallel identifies per window.
func WithConcurrency(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithWindow overrides the admission window length.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithLogger sets the logger for admission diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLimiter creates a Limiter with an in-memory store, concurrency 1 and the
// default 6 second window.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		store:       NewMemoryStore(),
		concurrency: DefaultConcurrency,
		window:      DefaultWindow,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewLimiterFromConfig creates a Limiter from configuration.
// Additional options override config values.
func NewLimiterFromConfig(cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, cfg.Concurrency)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, cfg.Window)
	}

	allOpts := append([]Option{
		WithConcurrency(cfg.Concurrency),
		WithWindow(cfg.Window),
	}, opts...)

	return NewLimiter(allOpts...), nil
}

// Wait blocks until an identify slot is granted for botID or ctx is
// cancelled. Contention never produces an error, only waiting.
func (l *Limiter) Wait(ctx context.Context, botID string) error {
	for {
		ok, retryAfter, err := l.store.Reserve(ctx, botID, l.concurrency, l.window)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if ok {
			return nil
		}

		// A non-positive retry hint means the window just rolled over;
		// re-reserve after a short pause instead of spinning.
		if retryAfter <= 0 {
			retryAfter = 10 * time.Millisecond
		}

		l.logger.DebugContext(ctx, "identify slot exhausted, waiting",
			slog.String("bot_id", botID),
			slog.Duration("retry_after", retryAfter))

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
