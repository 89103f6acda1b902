// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestKindOfCoversAtVariants(t *testing.T) {
	t.Parallel()
	// Every architecture carries the *at syscalls plus socket and bind.
	wantKinds := map[int64]SyscallKind{
		unix.SYS_OPENAT:    KindOpenat,
		unix.SYS_UNLINKAT:  KindUnlinkat,
		unix.SYS_FACCESSAT: KindFaccessat,
		unix.SYS_SOCKET:    KindSocket,
		unix.SYS_BIND:      KindBind,
	}
	for number, want := range wantKinds {
		got, ok := KindOf(number)
		if !ok || got != want {
			t.Errorf("KindOf(%d): got %v/%v, want %v/true", number, got, ok, want)
		}
	}
}

func TestKindOfRejectsUnlisted(t *testing.T) {
	t.Parallel()
	// Numbers outside the allow-list, including ones close to it.
	for _, number := range []int64{-1, 0, unix.SYS_READ, unix.SYS_EXECVE, unix.SYS_CONNECT} {
		if kind, ok := KindOf(number); ok {
			t.Errorf("KindOf(%d): got %v, want not listed", number, kind)
		}
	}
}

func TestNumberOfRoundTrips(t *testing.T) {
	t.Parallel()
	for kind := KindOpen; kind <= KindBind; kind++ {
		number, ok := NumberOf(kind)
		if !ok {
			// Legacy calls are absent on newer architectures.
			continue
		}
		back, ok := KindOf(number)
		if !ok || back != kind {
			t.Errorf("KindOf(NumberOf(%v)): got %v/%v, want %v/true", kind, back, ok, kind)
		}
	}
}

func TestParseSyscallKind(t *testing.T) {
	t.Parallel()
	for kind := KindOpen; kind <= KindBind; kind++ {
		parsed, err := ParseSyscallKind(kind.String())
		if err != nil {
			t.Errorf("ParseSyscallKind(%q): %v", kind.String(), err)
			continue
		}
		if parsed != kind {
			t.Errorf("ParseSyscallKind(%q): got %v, want %v", kind.String(), parsed, kind)
		}
	}
	if _, err := ParseSyscallKind("mount"); err == nil {
		t.Error("ParseSyscallKind(mount): expected error")
	}
}
