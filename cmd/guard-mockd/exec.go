// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// outcome is an executed operation's result: a descriptor to
// transplant back when fd >= 0, a plain syscall result otherwise
// (negated errno on failure, matching the raw syscall convention).
type outcome struct {
	value int64
	fd    int
}

func numericOutcome(value int64) outcome {
	return outcome{value: value, fd: -1}
}

func errnoOutcome(err error) outcome {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return numericOutcome(-int64(errno))
	}
	return numericOutcome(-int64(unix.EIO))
}

// execute replays the operation with the mock's own privileges.
// Transplanted descriptors are consumed positionally: every
// directory-fd argument and every socket argument takes the next one,
// in argument order — the same order the client's resolver queued
// them.
func execute(op *guard.Operation, transplanted []int, logger *slog.Logger) outcome {
	kind, ok := guard.KindOf(op.SyscallNum)
	if !ok {
		logger.Warn("elevation request for unsupported syscall", "syscall", op.SyscallNum)
		return numericOutcome(-int64(unix.ENOSYS))
	}

	fds := newFDSequence(transplanted)

	switch kind {
	case guard.KindOpen, guard.KindOpenat:
		dirFD, path, ok := fds.dirAndPath(op, 0)
		if !ok || len(op.Args) != 4 {
			return numericOutcome(-int64(unix.EINVAL))
		}
		fd, err := unix.Openat(dirFD, path, int(op.Args[2].Int), uint32(op.Args[3].Int))
		if err != nil {
			return errnoOutcome(err)
		}
		return outcome{fd: fd}

	case guard.KindUnlink, guard.KindUnlinkat:
		dirFD, path, ok := fds.dirAndPath(op, 0)
		if !ok || len(op.Args) != 3 {
			return numericOutcome(-int64(unix.EINVAL))
		}
		if err := unix.Unlinkat(dirFD, path, int(op.Args[2].Int)); err != nil {
			return errnoOutcome(err)
		}
		return numericOutcome(0)

	case guard.KindAccess, guard.KindFaccessat:
		dirFD, path, ok := fds.dirAndPath(op, 0)
		if !ok || len(op.Args) != 4 {
			return numericOutcome(-int64(unix.EINVAL))
		}
		if err := unix.Faccessat(dirFD, path, uint32(op.Args[2].Int), int(op.Args[3].Int)); err != nil {
			return errnoOutcome(err)
		}
		return numericOutcome(0)

	case guard.KindSocket:
		if len(op.Args) != 3 {
			return numericOutcome(-int64(unix.EINVAL))
		}
		fd, err := unix.Socket(int(op.Args[0].Int), int(op.Args[1].Int), int(op.Args[2].Int))
		if err != nil {
			return errnoOutcome(err)
		}
		return outcome{fd: fd}

	case guard.KindBind:
		socketFD, ok := fds.socket(op, 0)
		if !ok || len(op.Args) != 2 || op.Args[1].Kind != guard.ArgBytes {
			return numericOutcome(-int64(unix.EINVAL))
		}
		return bindRaw(socketFD, op.Args[1].Bytes)
	}
	return numericOutcome(-int64(unix.ENOSYS))
}

// bindRaw issues the bind syscall directly: the address is opaque
// bytes of the caller's exact length, and only the kernel knows its
// real shape.
func bindRaw(socketFD int, addr []byte) outcome {
	if len(addr) == 0 {
		return numericOutcome(-int64(unix.EINVAL))
	}
	_, _, errno := unix.Syscall(unix.SYS_BIND,
		uintptr(socketFD),
		uintptr(unsafe.Pointer(&addr[0])),
		uintptr(len(addr)))
	if errno != 0 {
		return numericOutcome(-int64(errno))
	}
	return numericOutcome(0)
}

// fdSequence walks the transplanted descriptor list positionally
// against an operation's arguments.
type fdSequence struct {
	transplanted []int
	next         int
}

func newFDSequence(transplanted []int) *fdSequence {
	return &fdSequence{transplanted: transplanted}
}

// dirAndPath consumes the descriptor for the directory-fd argument at
// index and returns it with the following string argument. The
// directory descriptor is preferred over the resolved path so the
// operation applies to the directory the caller actually held, even
// if it was since renamed.
func (s *fdSequence) dirAndPath(op *guard.Operation, index int) (dirFD int, path string, ok bool) {
	if index+1 >= len(op.Args) ||
		op.Args[index].Kind != guard.ArgDirFd ||
		op.Args[index+1].Kind != guard.ArgString {
		return 0, "", false
	}
	if s.next >= len(s.transplanted) {
		return 0, "", false
	}
	dirFD = s.transplanted[s.next]
	s.next++
	return dirFD, op.Args[index+1].Str, true
}

// socket consumes the descriptor for the socket argument at index.
func (s *fdSequence) socket(op *guard.Operation, index int) (socketFD int, ok bool) {
	if index >= len(op.Args) || op.Args[index].Kind != guard.ArgSocket {
		return 0, false
	}
	if s.next >= len(s.transplanted) {
		return 0, false
	}
	socketFD = s.transplanted[s.next]
	s.next++
	return socketFD, true
}
