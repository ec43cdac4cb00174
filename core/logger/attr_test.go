package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/botkit/core/logger"
)

func TestGroup(t *testing.T) {
	t.Parallel()
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestDuration(t *testing.T) {
	t.Parallel()
	d := 5 * time.Second
	attr := logger.Duration(d)
	require.Equal(t, "duration", attr.Key)
	assert.Equal(t, d, attr.Value.Duration())
}

func TestElapsed(t *testing.T) {
	t.Parallel()
	start := time.Now().Add(-500 * time.Millisecond)
	attr := logger.Elapsed(start)
	require.Equal(t, "elapsed", attr.Key)
	assert.GreaterOrEqual(t, attr.Value.Duration(), 500*time.Millisecond)
}

func TestGatewayAttrs(t *testing.T) {
	t.Parallel()

	attr := logger.ShardID(3)
	require.Equal(t, "shard_id", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Int64())

	attr = logger.Sequence(42)
	require.Equal(t, "sequence", attr.Key)
	assert.Equal(t, int64(42), attr.Value.Int64())

	attr = logger.CloseCode(4000)
	require.Equal(t, "close_code", attr.Key)
	assert.Equal(t, int64(4000), attr.Value.Int64())

	attr = logger.Opcode(10)
	require.Equal(t, "op", attr.Key)
	assert.Equal(t, int64(10), attr.Value.Int64())
}

func TestStringAttrsAreNilSafe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fn   func(string) slog.Attr
		key  string
	}{
		{"BotID", logger.BotID, "bot_id"},
		{"SessionID", logger.SessionID, "session_id"},
		{"EventType", logger.EventType, "event_type"},
		{"Bucket", logger.Bucket, "bucket"},
		{"InteractionID", logger.InteractionID, "interaction_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			attr := tc.fn("value")
			require.Equal(t, tc.key, attr.Key)
			assert.Equal(t, "value", attr.Value.String())

			assert.True(t, tc.fn("").Equal(slog.Attr{}))
		})
	}
}

func TestHTTPAttrs(t *testing.T) {
	t.Parallel()

	attr := logger.Method("GET")
	require.Equal(t, "method", attr.Key)
	assert.Equal(t, "GET", attr.Value.String())

	attr = logger.Path("/webhooks/1/tok")
	require.Equal(t, "path", attr.Key)
	assert.Equal(t, "/webhooks/1/tok", attr.Value.String())

	attr = logger.StatusCode(429)
	require.Equal(t, "status_code", attr.Key)
	assert.Equal(t, int64(429), attr.Value.Int64())

	attr = logger.RetryCount(5)
	require.Equal(t, "retry_count", attr.Key)
	assert.Equal(t, int64(5), attr.Value.Int64())
}
