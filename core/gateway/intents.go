package gateway

// Intents is the bitset declaring which dispatch event groups the session
// subscribes to. It is sent once in the identify handshake.
type Intents int64

const (
	IntentGuilds Intents = 1 << iota
	IntentGuildMembers
	IntentGuildModeration
	IntentGuildExpressions
	IntentGuildIntegrations
	IntentGuildWebhooks
	IntentGuildInvites
	IntentGuildVoiceStates
	IntentGuildPresences
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentGuildMessageTyping
	IntentDirectMessages
	IntentDirectMessageReactions
	IntentDirectMessageTyping
	IntentMessageContent
	IntentGuildScheduledEvents
)

// Has reports whether every bit of other is set.
func (i Intents) Has(other Intents) bool {
	return i&other == other
}

// Add returns the union of both bitsets.
func (i Intents) Add(other Intents) Intents {
	return i | other
}

// Remove clears the bits of other.
func (i Intents) Remove(other Intents) Intents {
	return i &^ other
}
