package wire

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes envelopes into websocket frames.
type Codec interface {
	Name() string
	// FrameType is websocket.TextMessage or websocket.BinaryMessage.
	FrameType() int
	Encode(m *Message) ([]byte, error)
	Decode(data []byte, m *Message) error
}

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// CodecByName resolves the ?encoding= query value. Empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return MsgPack, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(m *Message) ([]byte, error) { return json.Marshal(m) }

func (jsonCodec) Decode(data []byte, m *Message) error {
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	return validate(m)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(m *Message) ([]byte, error) { return msgpack.Marshal(m) }

func (msgpackCodec) Decode(data []byte, m *Message) error {
	if err := msgpack.Unmarshal(data, m); err != nil {
		return err
	}
	return validate(m)
}

func validate(m *Message) error {
	if m.Type == "" {
		return fmt.Errorf("message missing type")
	}
	if len(m.Payload) > 0 && !json.Valid(m.Payload) {
		return fmt.Errorf("%s payload is not valid JSON", m.Type)
	}
	return nil
}
