package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit
// nil checks, following the principle of making zero values useful.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ShardID creates an attribute for the gateway shard number.
func ShardID(id int) slog.Attr {
	return slog.Int("shard_id", id)
}

// BotID creates an attribute for the bot identity.
func BotID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("bot_id", id)
}

// SessionID creates an attribute for a gateway session identifier.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// Sequence creates an attribute for a gateway event sequence number.
func Sequence(seq int64) slog.Attr {
	return slog.Int64("sequence", seq)
}

// CloseCode creates an attribute for a WebSocket close code.
func CloseCode(code int) slog.Attr {
	return slog.Int("close_code", code)
}

// Opcode creates an attribute for a gateway payload opcode.
func Opcode(op int) slog.Attr {
	return slog.Int("op", op)
}

// EventType creates an attribute for a dispatch event type.
func EventType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("event_type", t)
}

// Bucket creates an attribute for a rate-limit bucket key.
func Bucket(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("bucket", key)
}

// InteractionID creates an attribute for an interaction identifier.
func InteractionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("interaction_id", id)
}

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode creates an attribute for HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}
