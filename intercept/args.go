// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"bytes"
	"errors"
	"fmt"
	"unsafe"
)

// maxPathLength bounds NUL-terminated path reads. PATH_MAX on Linux.
const maxPathLength = 4096

// maxSockaddrLength bounds bind address reads. sockaddr_storage is
// 128 bytes; no socket family uses more.
const maxSockaddrLength = 128

var errNullPointer = errors.New("intercept: NULL pointer argument")

// stringAt reads a NUL-terminated string from foreign memory handed
// across the interception ABI. Reads stop at the first NUL; a string
// that runs past maxPathLength without one is rejected rather than
// read further.
func stringAt(ptr uintptr) (string, error) {
	if ptr == 0 {
		return "", errNullPointer
	}
	window := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), maxPathLength)
	for i, b := range window {
		if b == 0 {
			return string(window[:i]), nil
		}
	}
	return "", fmt.Errorf("intercept: string argument exceeds %d bytes without NUL", maxPathLength)
}

// bytesAt copies length bytes of foreign memory. The caller-supplied
// length is validated against the sockaddr bound before the pointer
// is dereferenced. A zero length yields nil without touching ptr,
// matching bind's permission for empty addresses.
func bytesAt(ptr uintptr, length int64) ([]byte, error) {
	if length < 0 || length > maxSockaddrLength {
		return nil, fmt.Errorf("intercept: byte argument length %d outside [0, %d]", length, maxSockaddrLength)
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == 0 {
		return nil, errNullPointer
	}
	return bytes.Clone(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), length)), nil
}
