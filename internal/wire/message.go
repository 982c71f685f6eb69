package wire

import "encoding/json"

// Type is the relay envelope discriminator.
type Type string

// Client to relay.
const (
	TypeSubscribe   Type = "subscribe"
	TypeUnsubscribe Type = "unsubscribe"
	TypeTrack       Type = "track"
	TypeBroadcast   Type = "broadcast"
)

// Relay to client.
const (
	TypeSubscribed    Type = "subscribed"
	TypeAck           Type = "ack"
	TypeEvent         Type = "event"
	TypePresenceJoin  Type = "presence_join"
	TypePresenceLeave Type = "presence_leave"
	TypeError         Type = "error"
)

// Message is the single envelope exchanged with the relay. Ref correlates a
// request with its reply; pushes (events, presence) carry no ref.
//
// Payload is opaque to the relay and always JSON so browser peers can read it
// regardless of the frame codec.
type Message struct {
	Type    Type            `json:"type" msgpack:"type"`
	Ref     uint64          `json:"ref,omitempty" msgpack:"ref,omitempty"`
	Topic   string          `json:"topic,omitempty" msgpack:"topic,omitempty"`
	Key     string          `json:"key,omitempty" msgpack:"key,omitempty"`
	Event   string          `json:"event,omitempty" msgpack:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty" msgpack:"payload,omitempty"`
	Error   string          `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Reply builds a response that carries the request's ref.
func (m *Message) Reply(t Type) *Message {
	return &Message{Type: t, Ref: m.Ref, Topic: m.Topic}
}

// Fail builds an error response for the request.
func (m *Message) Fail(reason string) *Message {
	return &Message{Type: TypeError, Ref: m.Ref, Topic: m.Topic, Error: reason}
}

// IsReply reports whether the message answers a request.
func (m *Message) IsReply() bool {
	if m.Ref == 0 {
		return false
	}
	switch m.Type {
	case TypeSubscribed, TypeAck, TypeError:
		return true
	}
	return false
}
