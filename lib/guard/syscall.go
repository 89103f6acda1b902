// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import "fmt"

// SyscallKind names a supported syscall kind independently of the
// architecture's numbering. The interception layer maps intercepted
// numbers to kinds; daemons map received operations back the same
// way, so both sides share one table per architecture.
type SyscallKind uint8

const (
	KindOpen SyscallKind = iota + 1
	KindOpenat
	KindUnlink
	KindUnlinkat
	KindAccess
	KindFaccessat
	KindSocket
	KindBind
)

// String returns the syscall name.
func (k SyscallKind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindOpenat:
		return "openat"
	case KindUnlink:
		return "unlink"
	case KindUnlinkat:
		return "unlinkat"
	case KindAccess:
		return "access"
	case KindFaccessat:
		return "faccessat"
	case KindSocket:
		return "socket"
	case KindBind:
		return "bind"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseSyscallKind maps a syscall name to its kind.
func ParseSyscallKind(name string) (SyscallKind, error) {
	for kind := KindOpen; kind <= KindBind; kind++ {
		if kind.String() == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("guard: unknown syscall kind %q", name)
}

// syscallKinds is the number-to-kind reverse of the per-architecture
// syscallNumbers table.
var syscallKinds = func() map[int64]SyscallKind {
	kinds := make(map[int64]SyscallKind, len(syscallNumbers))
	for kind, number := range syscallNumbers {
		kinds[number] = kind
	}
	return kinds
}()

// KindOf maps an architecture syscall number to its supported kind.
// ok is false for every number outside the elevation allow-list.
func KindOf(number int64) (kind SyscallKind, ok bool) {
	kind, ok = syscallKinds[number]
	return kind, ok
}

// NumberOf maps a supported kind to this architecture's syscall
// number. ok is false for kinds the architecture does not have, such
// as the legacy non-at calls on arm64.
func NumberOf(kind SyscallKind) (number int64, ok bool) {
	number, ok = syscallNumbers[kind]
	return number, ok
}
