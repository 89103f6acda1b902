// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/AurioPinto/guardian-agent/lib/codec"
)

// ErrProtocol marks any wire-level violation: bad length, unexpected
// tag, undecodable payload. Callers abort the current negotiation on
// it; it never indicates anything about process health.
var ErrProtocol = errors.New("frame: protocol violation")

// headerLength is the size of the length prefix.
const headerLength = 4

// maxPayloadLength bounds a single frame. Guard messages are small —
// an operation with a full sockaddr blob and a signed credential fits
// in a few kilobytes — so 1 MB is generous without letting a broken
// peer cause unbounded allocation.
const maxPayloadLength = 1024 * 1024

// Encode builds a complete frame: length prefix, tag, CBOR-encoded
// payload. A nil payload value encodes as an empty CBOR map so the
// receiver can always decode into a struct.
func Encode(tag byte, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("frame: encoding payload for tag 0x%02x: %w", tag, err)
	}
	message := make([]byte, headerLength+1+len(body))
	binary.BigEndian.PutUint32(message[:headerLength], uint32(1+len(body)))
	message[headerLength] = tag
	copy(message[headerLength+1:], body)
	return message, nil
}

// Write encodes payload under tag and writes the frame to w.
func Write(w io.Writer, tag byte, payload any) error {
	message, err := Encode(tag, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("frame: writing message 0x%02x: %w", tag, err)
	}
	return nil
}

// Read reads one frame from r, blocking until the full frame arrives
// or the stream ends. Returns the tag and the raw payload bytes.
func Read(r io.Reader) (byte, []byte, error) {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("%w: reading length prefix: %v", ErrProtocol, err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length < 1 {
		return 0, nil, fmt.Errorf("%w: frame length %d too short for tag", ErrProtocol, length)
	}
	if length > maxPayloadLength {
		return 0, nil, fmt.Errorf("%w: frame length %d exceeds maximum %d", ErrProtocol, length, maxPayloadLength)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("%w: reading %d-byte frame body: %v", ErrProtocol, length, err)
	}
	return body[0], body[1:], nil
}

// ReadExpected reads one frame from r, verifies its tag matches the
// current protocol step, and CBOR-decodes the payload into v.
func ReadExpected(r io.Reader, expect byte, v any) error {
	tag, payload, err := Read(r)
	if err != nil {
		return err
	}
	return decodeExpected(tag, payload, expect, v)
}

// decodeExpected is the shared tail of both receive paths: tag check
// then payload decode.
func decodeExpected(tag byte, payload []byte, expect byte, v any) error {
	if tag != expect {
		return fmt.Errorf("%w: got tag 0x%02x, want 0x%02x", ErrProtocol, tag, expect)
	}
	if v == nil {
		return nil
	}
	if err := codec.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decoding payload for tag 0x%02x: %v", ErrProtocol, tag, err)
	}
	return nil
}
