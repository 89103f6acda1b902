// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// syscallNumber resolves kind for the test architecture, skipping the
// test when the architecture does not have it.
func syscallNumber(t *testing.T, kind guard.SyscallKind) int64 {
	t.Helper()
	number, ok := guard.NumberOf(kind)
	if !ok {
		t.Skipf("syscall %s not present on this architecture", kind)
	}
	return number
}

func TestBuildOperationOpenat(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindOpenat)
	buffer := pathBuffer("etc/shadow")
	defer runtime.KeepAlive(buffer)
	args := [6]uintptr{
		uintptr(atFDCWD),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unix.O_RDONLY),
		0,
	}

	op, eligible, err := buildOperation(number, args)
	if err != nil {
		t.Fatalf("buildOperation: %v", err)
	}
	if !eligible {
		t.Error("eligible: got false, want true")
	}
	if op.SyscallNum != number {
		t.Errorf("syscall number: got %d, want %d", op.SyscallNum, number)
	}
	if op.Args[0].DirFd.FD != guard.AtFDCWD {
		t.Errorf("dirfd: got %d, want AT_FDCWD", op.Args[0].DirFd.FD)
	}
	if op.Args[1].Str != "etc/shadow" {
		t.Errorf("path: got %q, want etc/shadow", op.Args[1].Str)
	}
}

func TestBuildOperationOpen(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindOpen)
	buffer := pathBuffer("/etc/shadow")
	defer runtime.KeepAlive(buffer)
	args := [6]uintptr{
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unix.O_WRONLY | unix.O_CREAT),
		0o600,
	}

	op, eligible, err := buildOperation(number, args)
	if err != nil {
		t.Fatalf("buildOperation: %v", err)
	}
	if !eligible {
		t.Error("eligible: got false, want true")
	}
	// Legacy open is encoded as the at-form with the cwd sentinel.
	if op.Args[0].Kind != guard.ArgDirFd || op.Args[0].DirFd.FD != guard.AtFDCWD {
		t.Errorf("dirfd arg: got %+v, want AT_FDCWD sentinel", op.Args[0])
	}
	if op.Args[2].Int != int64(unix.O_WRONLY|unix.O_CREAT) || op.Args[3].Int != 0o600 {
		t.Errorf("flags/mode: got %d/%d", op.Args[2].Int, op.Args[3].Int)
	}
}

func TestBuildOperationUnlinkat(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindUnlinkat)
	buffer := pathBuffer("victim")
	defer runtime.KeepAlive(buffer)
	args := [6]uintptr{
		7,
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unix.AT_REMOVEDIR),
	}

	op, eligible, err := buildOperation(number, args)
	if err != nil {
		t.Fatalf("buildOperation: %v", err)
	}
	if !eligible {
		t.Error("eligible: got false, want true")
	}
	if op.Args[0].DirFd.FD != 7 {
		t.Errorf("dirfd: got %d, want 7", op.Args[0].DirFd.FD)
	}
	if op.Args[2].Int != int64(unix.AT_REMOVEDIR) {
		t.Errorf("flags: got %d, want AT_REMOVEDIR", op.Args[2].Int)
	}
}

func TestBuildOperationSocket(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindSocket)
	args := [6]uintptr{unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP}

	op, eligible, err := buildOperation(number, args)
	if err != nil {
		t.Fatalf("buildOperation: %v", err)
	}
	if !eligible {
		t.Error("eligible: got false, want true")
	}
	values := []int64{op.Args[0].Int, op.Args[1].Int, op.Args[2].Int}
	want := []int64{unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("arg %d: got %d, want %d", i, values[i], want[i])
		}
	}
}

func TestBuildOperationBind(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindBind)
	addr := []byte{0x02, 0x00, 0x00, 0x50, 0x00, 0x00, 0x00, 0x00}
	defer runtime.KeepAlive(addr)
	args := [6]uintptr{
		9,
		uintptr(unsafe.Pointer(&addr[0])),
		uintptr(len(addr)),
	}

	op, eligible, err := buildOperation(number, args)
	if err != nil {
		t.Fatalf("buildOperation: %v", err)
	}
	if !eligible {
		t.Error("eligible: got false, want true")
	}
	if op.Args[0].Socket.FD != 9 {
		t.Errorf("socket fd: got %d, want 9", op.Args[0].Socket.FD)
	}
	if len(op.Args[1].Bytes) != len(addr) {
		t.Errorf("address length: got %d, want %d", len(op.Args[1].Bytes), len(addr))
	}
}

func TestBuildOperationNullPath(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindOpenat)
	args := [6]uintptr{uintptr(atFDCWD), 0, 0, 0}

	if _, _, err := buildOperation(number, args); err == nil {
		t.Error("buildOperation: expected error for NULL path")
	}
}

func TestBuildOperationUnsupportedNumber(t *testing.T) {
	t.Parallel()
	if _, _, err := buildOperation(unix.SYS_READ, [6]uintptr{}); err == nil {
		t.Error("buildOperation: expected error for unsupported syscall")
	}
}

func TestFaccessatExecuteCheckEligibility(t *testing.T) {
	t.Parallel()
	number := syscallNumber(t, guard.KindFaccessat)
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	executable := filepath.Join(dir, "tool")
	if err := os.WriteFile(executable, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name         string
		path         string
		mode         int64
		wantEligible bool
	}{
		{"execute check, no execute bits", plain, unix.X_OK, false},
		{"execute check, executable", executable, unix.X_OK, true},
		{"execute check, missing file", filepath.Join(dir, "absent"), unix.X_OK, true},
		{"read check, no execute bits", plain, unix.R_OK, true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			buffer := pathBuffer(test.path)
			defer runtime.KeepAlive(buffer)
			args := [6]uintptr{
				uintptr(atFDCWD),
				uintptr(unsafe.Pointer(&buffer[0])),
				uintptr(test.mode),
				0,
			}
			_, eligible, err := buildOperation(number, args)
			if err != nil {
				t.Fatalf("buildOperation: %v", err)
			}
			if eligible != test.wantEligible {
				t.Errorf("eligible: got %v, want %v", eligible, test.wantEligible)
			}
		})
	}
}
