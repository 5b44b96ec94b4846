// Package protocol carries the messages exchanged by the two parties of a
// comparison, over any connection able to move them in order.
package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Type identifies the content of a Message.
type Type string

// Message is one request or reply of a two-party exchange.
type Message struct {
	// SSID identifies the exchange this message belongs to. A reply carries the SSID of its request.
	SSID uuid.UUID
	// Type identifies the content.
	Type Type
	// Key is the fingerprint of the public keys the content is encrypted under.
	Key []byte
	// Data is the cbor encoded content.
	Data []byte
}

// NewMessage encodes content into a new Message.
func NewMessage(ssid uuid.UUID, t Type, key []byte, content interface{}) (*Message, error) {
	data, err := cbor.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal %s: %w", t, err)
	}
	return &Message{
		SSID: ssid,
		Type: t,
		Key:  key,
		Data: data,
	}, nil
}

// Decode unmarshals the content of m into v.
func (m *Message) Decode(v interface{}) error {
	if err := cbor.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal %s: %w", m.Type, err)
	}
	return nil
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("message: session %s, type %s", m.SSID, m.Type)
}
