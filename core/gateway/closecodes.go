package gateway

// Vendor-defined close codes.
const (
	closeUnknownError         = 4000
	closeUnknownOpcode        = 4001
	closeDecodeError          = 4002
	closeNotAuthenticated     = 4003
	closeAuthenticationFailed = 4004
	closeAlreadyAuthenticated = 4005
	closeInvalidSequence      = 4007
	closeRateLimited          = 4008
	closeSessionTimedOut      = 4009
	closeInvalidShard         = 4010
	closeShardingRequired     = 4011
	closeInvalidAPIVersion    = 4012
	closeInvalidIntents       = 4013
	closeDisallowedIntents    = 4014

	// Private outbound code for connections whose heartbeats stopped being
	// acknowledged. Using a non-vendor code keeps the session resumable.
	closeZombieConnection = 4900
)

// fatalCloseCodes are the vendor codes that forbid reconnecting: retrying
// with the same configuration can only fail the same way.
var fatalCloseCodes = map[int]struct{}{
	closeAuthenticationFailed: {},
	closeInvalidShard:         {},
	closeShardingRequired:     {},
	closeInvalidAPIVersion:    {},
	closeInvalidIntents:       {},
	closeDisallowedIntents:    {},
}

// reconnectAllowed reports whether a close code permits another connection
// attempt. Unknown codes and abnormal closes are treated as reconnectable.
func reconnectAllowed(code int) bool {
	_, fatal := fatalCloseCodes[code]
	return !fatal
}
