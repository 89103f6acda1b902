// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package fdesc provides exclusive ownership of raw OS file
// descriptors.
//
// Every descriptor the interception layer creates for its own use —
// the duplicated working-directory handle, descriptors received from
// the elevation daemon — is held in an FD so it is closed exactly
// once on every exit path. Descriptors borrowed from the intercepted
// process (directory-fd arguments, socket arguments) are never
// wrapped: the process owns those, and the layer only reads them.
package fdesc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FD owns one raw OS file descriptor. It is not safe for concurrent
// use; ownership follows the single elevation attempt that created it.
type FD struct {
	raw    int
	closed bool
}

// New takes ownership of raw. A negative value means the acquiring
// call already failed, so there is nothing to own and New reports the
// failure to the caller instead of constructing a dead handle.
func New(raw int) (*FD, error) {
	if raw < 0 {
		return nil, fmt.Errorf("fdesc: invalid file descriptor %d", raw)
	}
	return &FD{raw: raw}, nil
}

// Raw returns the descriptor number for passing to OS calls. The
// caller must not close it or retain it past the FD's lifetime.
func (f *FD) Raw() int {
	return f.raw
}

// Close releases the descriptor. Safe to call more than once; only
// the first call closes.
func (f *FD) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if err := unix.Close(f.raw); err != nil {
		return fmt.Errorf("fdesc: closing fd %d: %w", f.raw, err)
	}
	return nil
}

// Release gives up ownership and returns the raw descriptor without
// closing it. Used when the descriptor becomes a syscall return value
// and ownership transfers to the intercepted process.
func (f *FD) Release() int {
	f.closed = true
	return f.raw
}
