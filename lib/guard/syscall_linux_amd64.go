// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import "golang.org/x/sys/unix"

// syscallNumbers maps supported kinds to x86-64 numbers, which
// include both the legacy path calls and their *at successors.
var syscallNumbers = map[SyscallKind]int64{
	KindOpen:      unix.SYS_OPEN,
	KindOpenat:    unix.SYS_OPENAT,
	KindUnlink:    unix.SYS_UNLINK,
	KindUnlinkat:  unix.SYS_UNLINKAT,
	KindAccess:    unix.SYS_ACCESS,
	KindFaccessat: unix.SYS_FACCESSAT,
	KindSocket:    unix.SYS_SOCKET,
	KindBind:      unix.SYS_BIND,
}
