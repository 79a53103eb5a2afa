// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/checkin/lib/codec"
)

// Message is one decoded envelope. The payload stays encoded until the
// receiver knows, from Event, what type to decode it into.
type Message struct {
	Event string

	payload []byte
	decode  func(data []byte, v any) error
}

// Decode decodes the envelope payload into v.
func (m Message) Decode(v any) error {
	if len(m.payload) == 0 {
		return fmt.Errorf("realtime: %s message has no payload", m.Event)
	}
	return m.decode(m.payload, v)
}

// Codec converts between envelopes and frames.
type Codec interface {
	// Name is the configuration name of the encoding.
	Name() string

	// Binary reports whether frames are binary (true) or text.
	Binary() bool

	// Encode builds a frame for the given event and payload.
	Encode(event string, data any) ([]byte, error)

	// Decode parses a frame into a Message.
	Decode(frame []byte) (Message, error)
}

// CodecByName returns the codec for a realtime.encoding config value.
// The empty string selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	}
	return nil, fmt.Errorf("realtime: unknown encoding %q (want json or cbor)", name)
}

// JSONCodec encodes envelopes as JSON text frames:
//
//	{"event":"checkin","data":{"ticketId":"...","eventId":"...",...}}
type JSONCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("realtime: encoding %s payload: %w", event, err)
	}
	return json.Marshal(jsonEnvelope{Event: event, Data: payload})
}

func (JSONCodec) Decode(frame []byte) (Message, error) {
	var envelope jsonEnvelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return Message{}, fmt.Errorf("realtime: decoding JSON frame: %w", err)
	}
	if envelope.Event == "" {
		return Message{}, fmt.Errorf("realtime: JSON frame has no event name")
	}
	return Message{Event: envelope.Event, payload: envelope.Data, decode: json.Unmarshal}, nil
}

// CBORCodec encodes the same envelopes as CBOR binary frames.
type CBORCodec struct{}

type cborEnvelope struct {
	Event string           `json:"event"`
	Data  codec.RawMessage `json:"data,omitempty"`
}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Binary() bool { return true }

func (CBORCodec) Encode(event string, data any) ([]byte, error) {
	payload, err := codec.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("realtime: encoding %s payload: %w", event, err)
	}
	return codec.Marshal(cborEnvelope{Event: event, Data: payload})
}

func (CBORCodec) Decode(frame []byte) (Message, error) {
	var envelope cborEnvelope
	if err := codec.Unmarshal(frame, &envelope); err != nil {
		return Message{}, fmt.Errorf("realtime: decoding CBOR frame: %w", err)
	}
	if envelope.Event == "" {
		return Message{}, fmt.Errorf("realtime: CBOR frame has no event name")
	}
	return Message{Event: envelope.Event, payload: envelope.Data, decode: codec.Unmarshal}, nil
}
