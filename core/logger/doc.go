// Package logger provides slog attribute helpers shared by the botkit
// subsystems.
//
// Helpers follow the empty-Attr pattern for nil safety: passing a nil error or
// an empty identifier yields an attribute slog silently drops, so call sites
// never need explicit nil checks:
//
//	log.Error("handshake failed",
//		logger.ShardID(conn.ShardID()),
//		logger.Error(err),
//	)
//
// The attribute vocabulary mirrors the domain: shards, gateway close codes,
// sequence numbers, rate-limit buckets and interaction identifiers, so log
// lines stay greppable across packages.
package logger
