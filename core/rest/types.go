package rest

import "encoding/json"

// MessageFlags is the platform's message flag bitset.
type MessageFlags int

// Ephemeral marks a message visible only to the invoking user.
const FlagEphemeral MessageFlags = 1 << 6

// Message is the thin view of a platform message returned by webhook calls.
// Only the fields the lifecycle needs are decoded; everything else stays in
// Raw for callers that want it.
type Message struct {
	ID        string          `json:"id"`
	ChannelID string          `json:"channel_id"`
	Content   string          `json:"content"`
	Flags     MessageFlags    `json:"flags"`
	Raw       json.RawMessage `json:"-"`
}

// WebhookMessage is the payload for creating a follow-up message.
type WebhookMessage struct {
	Content string            `json:"content,omitempty"`
	TTS     bool              `json:"tts,omitempty"`
	Flags   MessageFlags      `json:"flags,omitempty"`
	Embeds  []json.RawMessage `json:"embeds,omitempty"`
}

// WebhookMessageEdit is the payload for editing a webhook-owned message.
// Pointer fields distinguish "leave unchanged" from "clear".
type WebhookMessageEdit struct {
	Content *string            `json:"content,omitempty"`
	Embeds  *[]json.RawMessage `json:"embeds,omitempty"`
}
