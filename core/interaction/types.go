package interaction

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrymomot/botkit/core/rest"
)

// Kind determines which response verbs are legal for an interaction and which
// initial-response variant an ack or completion produces.
type Kind string

const (
	KindApplicationCommand Kind = "application_command"
	KindMessageComponent   Kind = "message_component"
	KindAutocomplete       Kind = "autocomplete"
	KindModal              Kind = "modal"
)

func (k Kind) valid() bool {
	switch k {
	case KindApplicationCommand, KindMessageComponent, KindAutocomplete, KindModal:
		return true
	}
	return false
}

// AckPolicy controls what happens when an interaction is still unanswered
// shortly before the vendor's initial-response deadline.
type AckPolicy string

const (
	// PolicyNone never acknowledges automatically; the handler owns the
	// deadline.
	PolicyNone AckPolicy = "none"
	// PolicyAckEphemeral defers with a response visible only to the invoker.
	PolicyAckEphemeral AckPolicy = "ack_ephemeral"
	// PolicyAckPublic defers with a publicly visible response.
	PolicyAckPublic AckPolicy = "ack_public"
)

func (p AckPolicy) valid() bool {
	switch p {
	case PolicyNone, PolicyAckEphemeral, PolicyAckPublic:
		return true
	}
	return false
}

// Interaction is the decoded inbound event handed over by the HTTP boundary.
type Interaction struct {
	ID    string
	Token string
	Kind  Kind
}

// ResponseType is the vendor's initial-response callback type.
type ResponseType int

const (
	ResponseChannelMessage         ResponseType = 4
	ResponseDeferredChannelMessage ResponseType = 5
	ResponseDeferredUpdateMessage  ResponseType = 6
	ResponseUpdateMessage          ResponseType = 7
	ResponseAutocompleteResult     ResponseType = 8
	ResponseModal                  ResponseType = 9
)

// Response is the initial interaction response the HTTP boundary writes back
// to the vendor.
type Response struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData carries the payload variants of an initial response. Message
// fields and autocomplete choices share the struct; the response type decides
// which of them the vendor reads.
type ResponseData struct {
	Content string            `json:"content,omitempty"`
	TTS     bool              `json:"tts,omitempty"`
	Flags   rest.MessageFlags `json:"flags,omitempty"`
	Embeds  []json.RawMessage `json:"embeds,omitempty"`
	Choices []Choice          `json:"choices,omitempty"`
}

// Choice is one autocomplete suggestion.
type Choice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// deferredResponse builds the ack variant for a kind. Autocomplete has no
// deferred variant; suggestions must be sent within the initial deadline.
func deferredResponse(kind Kind, ephemeral bool) (Response, error) {
	var typ ResponseType
	switch kind {
	case KindMessageComponent:
		typ = ResponseDeferredUpdateMessage
	case KindAutocomplete:
		return Response{}, fmt.Errorf("%w: autocomplete responses cannot be deferred", ErrInvalidState)
	default:
		typ = ResponseDeferredChannelMessage
	}

	resp := Response{Type: typ}
	if ephemeral {
		resp.Data = &ResponseData{Flags: rest.FlagEphemeral}
	}
	return resp, nil
}

// completionResponse builds the message variant for a kind: components update
// the message they originate from, everything else sends a new one.
func completionResponse(kind Kind, msg rest.WebhookMessage) Response {
	typ := ResponseChannelMessage
	if kind == KindMessageComponent {
		typ = ResponseUpdateMessage
	}
	return Response{Type: typ, Data: &ResponseData{
		Content: msg.Content,
		TTS:     msg.TTS,
		Flags:   msg.Flags,
		Embeds:  msg.Embeds,
	}}
}
