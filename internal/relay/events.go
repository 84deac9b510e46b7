// Package relay defines the wire envelope and event vocabulary exchanged
// with clients.
package relay

import "encoding/json"

// Inbound and outbound event names. Forwarded events keep the name they
// arrived under except where a dedicated outbound name is listed.
const (
	EventJoinRoom       = "join_room"
	EventMessage        = "message"
	EventPrivateMessage = "private_message"
	EventReaction       = "message_reaction"
	EventTyping         = "typing"
	EventCallUser       = "call_user"
	EventIncomingCall   = "incoming_call"
	EventCallAccepted   = "call_accepted"
	EventCallCandidate  = "call_candidate"
	EventEndCall        = "end_call"
	EventCallDeclined   = "call_declined"
	EventLiveScript     = "live_script_data"
	EventError          = "error_message"
)

// Envelope is the framing for every message in both directions: a named
// event with an opaque JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// eventFields carries the routing-relevant fields shared across inbound
// payloads. Everything else in a payload stays opaque and is forwarded
// verbatim. Decoding fails when a routing field has the wrong JSON type,
// which the router treats as malformed input.
type eventFields struct {
	Target    string          `json:"target"`
	TargetID  string          `json:"targetId"`
	To        string          `json:"to"`
	ID        string          `json:"id"`
	Timestamp json.RawMessage `json:"timestamp"`
	SenderID  string          `json:"senderId"`
	Text      string          `json:"text"`
	PushToken string          `json:"pushToken"`
}

// callUserPayload is the inbound call_user shape. The signaling fields are
// opaque to the relay and re-emitted untouched.
type callUserPayload struct {
	To             string          `json:"to"`
	From           json.RawMessage `json:"from,omitempty"`
	Offer          json.RawMessage `json:"offer,omitempty"`
	EncryptedOffer json.RawMessage `json:"encryptedOffer,omitempty"`
	Type           json.RawMessage `json:"type,omitempty"`
}

// incomingCallPayload is what the callee receives for a call_user event.
type incomingCallPayload struct {
	From           json.RawMessage `json:"from,omitempty"`
	Offer          json.RawMessage `json:"offer,omitempty"`
	EncryptedOffer json.RawMessage `json:"encryptedOffer,omitempty"`
	Type           json.RawMessage `json:"type,omitempty"`
}

// liveScriptPayload is the outbound live transcript fragment; From is the
// sending connection's id.
type liveScriptPayload struct {
	Text string `json:"text"`
	From string `json:"from"`
}

// encodeEnvelope marshals an outbound envelope. data may be a
// json.RawMessage to forward a payload verbatim, any marshalable value, or
// nil for payload-less events.
func encodeEnvelope(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
