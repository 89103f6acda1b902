// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// maxTransplantFDs bounds the descriptors carried by one message in
// either direction. An operation transplants at most one descriptor
// per argument, and no supported syscall has more than four.
const maxTransplantFDs = 16

// receiveBufferLength sizes the single recvmsg used by descriptor-
// carrying receives. Ancillary data binds to one segment, so the
// whole frame must arrive in one read; elevation responses are tens
// of bytes.
const receiveBufferLength = 64 * 1024

// Conn is a framed connection over a Unix domain stream socket. Each
// negotiation phase opens its own Conn; there is no pooling or reuse
// across intercepted calls.
type Conn struct {
	unixConn *net.UnixConn
}

// Dial connects to the guard socket at path.
func Dial(path string) (*Conn, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("frame: dialing %s: %w", path, err)
	}
	return &Conn{unixConn: conn.(*net.UnixConn)}, nil
}

// NewConn wraps an already-connected Unix socket, typically one
// returned by a listener's Accept on the daemon side.
func NewConn(unixConn *net.UnixConn) *Conn {
	return &Conn{unixConn: unixConn}
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.unixConn.Close()
}

// Send writes one plain frame with no attached descriptors.
func (c *Conn) Send(tag byte, payload any) error {
	return Write(c.unixConn, tag, payload)
}

// SendFDs writes one frame with the given descriptors attached as
// SCM_RIGHTS ancillary data. The receiving process gets duplicates of
// the descriptors in the same order. With no descriptors this is a
// plain send.
func (c *Conn) SendFDs(tag byte, payload any, fds []int) error {
	if len(fds) == 0 {
		return c.Send(tag, payload)
	}
	if len(fds) > maxTransplantFDs {
		return fmt.Errorf("frame: %d descriptors exceeds per-message maximum %d", len(fds), maxTransplantFDs)
	}
	message, err := Encode(tag, payload)
	if err != nil {
		return err
	}
	rights := unix.UnixRights(fds...)
	if _, _, err := c.unixConn.WriteMsgUnix(message, rights, nil); err != nil {
		return fmt.Errorf("frame: sending message 0x%02x with %d descriptors: %w", tag, len(fds), err)
	}
	return nil
}

// Receive reads one plain frame, verifies the tag, and decodes the
// payload into v. Blocks until the frame is complete or the
// connection closes.
func (c *Conn) Receive(expect byte, v any) error {
	return ReadExpected(c.unixConn, expect, v)
}

// ReceiveFDs reads one frame along with any SCM_RIGHTS descriptors
// attached to it, verifies the tag, and decodes the payload into v.
// The returned descriptors are owned by the caller, in the order the
// sender attached them.
//
// Ancillary data is delivered with the stream segment it was sent
// on, so this path uses a single recvmsg and requires the sender to
// have written the frame in one message. A frame that does not
// arrive whole, or whose length prefix disagrees with the bytes
// received, is a protocol violation.
func (c *Conn) ReceiveFDs(expect byte, v any) ([]int, error) {
	buffer := make([]byte, receiveBufferLength)
	oob := make([]byte, unix.CmsgSpace(maxTransplantFDs*4))

	n, oobn, _, _, err := c.unixConn.ReadMsgUnix(buffer, oob)
	if err != nil {
		return nil, fmt.Errorf("%w: recvmsg: %v", ErrProtocol, err)
	}
	if n < headerLength+1 {
		return nil, fmt.Errorf("%w: %d-byte message too short for a frame", ErrProtocol, n)
	}
	length := binary.BigEndian.Uint32(buffer[:headerLength])
	if int(length) != n-headerLength {
		return nil, fmt.Errorf("%w: received %d bytes but length prefix says %d", ErrProtocol, n-headerLength, length)
	}

	fds, err := parseRights(oob[:oobn])
	if err != nil {
		return nil, err
	}

	tag := buffer[headerLength]
	payload := buffer[headerLength+1 : n]
	if err := decodeExpected(tag, payload, expect, v); err != nil {
		closeAll(fds)
		return nil, err
	}
	return fds, nil
}

// parseRights extracts transplanted descriptors from raw ancillary
// data. No ancillary data yields an empty list, not an error — most
// responses carry a numeric result and no descriptor.
func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	controlMessages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing control messages: %v", ErrProtocol, err)
	}
	var fds []int
	for _, controlMessage := range controlMessages {
		rights, err := unix.ParseUnixRights(&controlMessage)
		if err != nil {
			// Not SCM_RIGHTS; nothing else is expected here.
			return nil, fmt.Errorf("%w: parsing SCM_RIGHTS: %v", ErrProtocol, err)
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

// closeAll releases descriptors that arrived with a frame the caller
// is rejecting. They were duplicated into this process by recvmsg, so
// dropping them without closing would leak.
func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
