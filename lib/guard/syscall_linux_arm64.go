// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import "golang.org/x/sys/unix"

// syscallNumbers maps supported kinds to arm64 numbers. The legacy
// non-at calls do not exist on this architecture, so only the *at
// family and the socket calls participate.
var syscallNumbers = map[SyscallKind]int64{
	KindOpenat:    unix.SYS_OPENAT,
	KindUnlinkat:  unix.SYS_UNLINKAT,
	KindFaccessat: unix.SYS_FACCESSAT,
	KindSocket:    unix.SYS_SOCKET,
	KindBind:      unix.SYS_BIND,
}
