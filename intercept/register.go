// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

// installed is the process-wide interceptor. Written exactly once by
// Register during library load, before the interception mechanism
// starts delivering syscalls, and read-only for the rest of the
// process lifetime.
var installed *Interceptor

// Register installs the process-wide interceptor. The interception
// mechanism's loader calls this once; a second call is a programming
// error and panics.
func Register(interceptor *Interceptor) {
	if interceptor == nil {
		panic("intercept: Register called with nil interceptor")
	}
	if installed != nil {
		panic("intercept: Register called twice")
	}
	installed = interceptor
}

// Handle is the package-level entry the interception mechanism
// invokes for every syscall. Before Register has run, every syscall
// passes through unhandled.
func Handle(number int64, args [6]uintptr) (result int64, handled bool) {
	interceptor := installed
	if interceptor == nil {
		return 0, false
	}
	return interceptor.Hook(number, args)
}
