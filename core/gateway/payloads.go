package gateway

import "encoding/json"

// Gateway opcodes. Consumed: Dispatch, Heartbeat, Reconnect, InvalidSession,
// Hello, HeartbeatAck. Produced: Heartbeat, Identify, Resume,
// RequestGuildMembers.
const (
	opDispatch            = 0
	opHeartbeat           = 1
	opIdentify            = 2
	opRequestGuildMembers = 8
	opResume              = 6
	opReconnect           = 7
	opInvalidSession      = 9
	opHello               = 10
	opHeartbeatAck        = 11
)

// payload is the inbound JSON envelope {op, d, s?, t?}.
type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// command is the outbound envelope.
type command struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

// Dispatch event types handled by the connection itself; everything else is
// forwarded to the consumer untouched.
const (
	eventReady   = "READY"
	eventResumed = "RESUMED"
)

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"` // milliseconds
}

type readyData struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Properties identifyProperties `json:"properties"`
	Shard      [2]int             `json:"shard"`
	Intents    Intents            `json:"intents"`
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// RequestGuildMembers asks the gateway to stream guild member chunks.
// Nonce correlates the chunks with the request.
type RequestGuildMembers struct {
	GuildID   string   `json:"guild_id"`
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
	Presences bool     `json:"presences,omitempty"`
	UserIDs   []string `json:"user_ids,omitempty"`
	Nonce     string   `json:"nonce,omitempty"`
}

// Event is a decoded dispatch forwarded to the consumer.
type Event struct {
	Type     string
	Sequence int64
	Data     json.RawMessage
}
