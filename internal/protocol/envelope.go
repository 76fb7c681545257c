package protocol

import (
	"encoding/json"
	"fmt"
)

// MethodBroadcast is the frame method an extension uses to publish an
// envelope to every subscriber on the host.
const MethodBroadcast = "app.broadcast"

// Query parameters an extension sends on the upgrade request.
const (
	QueryExtensionID  = "extensionId"
	QueryConnectToken = "connectToken"
)

// Envelope is the {event, data} message used in both directions.
//
// Wire format:
//
//	{"event": "add", "data": {...}}
type Envelope struct {
	// Event is the event name, or the reply channel name on a reply.
	Event string `json:"event"`

	// Data is the opaque payload, kept raw until a consumer decodes it.
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the envelope data into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("decode %q: empty data", e.Event)
	}

	return json.Unmarshal(e.Data, v)
}

// Request is the data of an outbound call envelope.
//
// Wire format:
//
//	{"chanel": "<replyChannelId>-add", "data": {...}}
type Request struct {
	// Chanel is the reply channel name the extension must echo back.
	Chanel string `json:"chanel"` //nolint:misspell // wire key spelled as the extensions expect

	// Data is the caller's payload.
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the request data into v.
func (r *Request) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("decode request on %q: empty data", r.Chanel)
	}

	return json.Unmarshal(r.Data, v)
}

// Frame is a message sent by an extension to the host.
//
// Wire format:
//
//	{"id": "...", "method": "app.broadcast", "accessToken": "...", "data": {...}}
type Frame struct {
	ID          string          `json:"id"`
	Method      string          `json:"method"`
	AccessToken string          `json:"accessToken"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// ReplyChannelName derives the per-call reply channel from a unique id and
// the event name. Both sides must agree on this byte for byte.
func ReplyChannelName(replyChannelID, event string) string {
	return replyChannelID + "-" + event
}

// NewEnvelope marshals payload into an envelope for event.
func NewEnvelope(event string, payload any) (*Envelope, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %q payload: %w", event, err)
	}

	return &Envelope{Event: event, Data: data}, nil
}

// NewRequest marshals payload into a request bound to a reply channel.
func NewRequest(replyChannelName string, payload any) (*Request, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	return &Request{Chanel: replyChannelName, Data: data}, nil
}

// marshalPayload passes raw JSON through untouched.
func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case nil:
		return json.RawMessage("null"), nil
	default:
		return json.Marshal(p)
	}
}
