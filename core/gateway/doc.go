// Package gateway maintains the persistent WebSocket connection a bot holds
// to the platform's real-time gateway, one Connection per shard.
//
// A Connection runs the connect → identify/resume → heartbeat → dispatch
// state machine and heals itself: reconnectable closes resume the session
// when a sequence and session id are known, everything else starts a fresh
// handshake. Only a vendor close code that forbids reconnecting (failed
// authentication, invalid shard, disallowed intents and the like) stops a
// connection for good.
//
//	conn, err := gateway.NewConnection(gateway.Config{
//		Token:   token,
//		Intents: gateway.IntentGuilds | gateway.IntentGuildMessages,
//	},
//		gateway.WithDispatchHandler(func(shardID int, evt gateway.Event) {
//			// decoded dispatch events arrive here, in order per shard
//		}),
//	)
//	if err != nil { ... }
//
//	err = conn.Start(ctx) // blocks; Run(ctx) for errgroup
//
// # Heartbeats and zombies
//
// After the server hello the connection heartbeats on the advertised
// interval, starting at a random jitter of at most one interval. A heartbeat
// whose predecessor was never acknowledged marks the connection as a zombie:
// the socket is closed with a private code and the regular close handling
// decides between resume and reconnect.
//
// # Identify admission
//
// Session starts are gated by a shared identify limiter so all shards of a
// bot respect the platform's handshake budget. The slot wait runs
// asynchronously; a shard keeps processing frames while queued.
//
// # Sharding
//
// ShardManager runs N connections under one errgroup with a shared limiter
// and dispatch handler. Events are ordered within a shard; no ordering is
// guaranteed across shards.
//
// Sequence gaps, duplicate heartbeat acks and similar anomalies are logged,
// never fatal: the vendor does not guarantee strict ordering under resume.
package gateway
