package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/botkit/pkg/identify"
)

// ShardManager runs one Connection per shard under a single lifecycle.
// All shards share one identify limiter so session starts respect the bot's
// admission budget regardless of which shard asks first.
type ShardManager struct {
	conns []*Connection
}

// ShardOption configures the manager's connections.
type ShardOption func(*shardSettings)

type shardSettings struct {
	limiter  *identify.Limiter
	onEvent  DispatchHandler
	logger   *slog.Logger
	connOpts []Option
}

// WithShardIdentifyLimiter shares a custom admission limiter, for example one
// backed by Redis when shards run in several processes.
func WithShardIdentifyLimiter(l *identify.Limiter) ShardOption {
	return func(s *shardSettings) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithShardDispatchHandler sets the consumer for all shards' events.
func WithShardDispatchHandler(h DispatchHandler) ShardOption {
	return func(s *shardSettings) {
		if h != nil {
			s.onEvent = h
		}
	}
}

// WithShardLogger sets the logger passed to every connection.
func WithShardLogger(l *slog.Logger) ShardOption {
	return func(s *shardSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConnectionOptions appends raw connection options applied to each shard.
func WithConnectionOptions(opts ...Option) ShardOption {
	return func(s *shardSettings) {
		s.connOpts = append(s.connOpts, opts...)
	}
}

// NewShardManager creates cfg.ShardCount connections sharing one identify
// limiter and dispatch handler.
func NewShardManager(cfg Config, opts ...ShardOption) (*ShardManager, error) {
	if cfg.ShardCount <= 0 {
		return nil, fmt.Errorf("%w: shard count must be positive", ErrInvalidConfig)
	}

	settings := shardSettings{
		limiter: identify.NewLimiter(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	m := &ShardManager{conns: make([]*Connection, 0, cfg.ShardCount)}
	for id := range cfg.ShardCount {
		connOpts := append([]Option{
			WithShard(id, cfg.ShardCount),
			WithIdentifyLimiter(settings.limiter),
			WithDispatchHandler(settings.onEvent),
			WithLogger(settings.logger),
		}, settings.connOpts...)

		conn, err := NewConnection(cfg, connOpts...)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", id, err)
		}
		m.conns = append(m.conns, conn)
	}

	return m, nil
}

// Shard returns the connection for a shard id, or nil when out of range.
func (m *ShardManager) Shard(id int) *Connection {
	if id < 0 || id >= len(m.conns) {
		return nil
	}
	return m.conns[id]
}

// ShardCount reports the number of managed connections.
func (m *ShardManager) ShardCount() int {
	return len(m.conns)
}

// Start runs all shards and blocks until the first fatal shard error or
// context cancellation. A shard that stops with a non-reconnectable close
// code takes the whole manager down so the failure is not silent.
func (m *ShardManager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, conn := range m.conns {
		g.Go(conn.Run(ctx))
	}
	return g.Wait()
}
