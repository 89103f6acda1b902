// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/AurioPinto/guardian-agent/lib/guard"
)

func TestDescribeOperation(t *testing.T) {
	t.Parallel()
	open := guard.NewOpenOp(archNumber(t, guard.KindOpenat), 0, "etc/shadow", 0, 0o600)
	open.Args[0].DirFd.Form = guard.DirFdPath
	open.Args[0].DirFd.Path = "/home/user"

	tests := []struct {
		name string
		op   *guard.Operation
		want string
	}{
		{
			"resolved open",
			open,
			`openat(dir:"/home/user", "etc/shadow", 0, 384)`,
		},
		{
			"raw dirfd unlink",
			guard.NewUnlinkOp(archNumber(t, guard.KindUnlinkat), 7, "victim", 0),
			`unlinkat(dirfd:7, "victim", 0)`,
		},
		{
			"bind",
			guard.NewBindOp(archNumber(t, guard.KindBind), 3, []byte{0x01, 0x00, 0x2f}),
			"bind(sock, <3 bytes>)",
		},
		{
			"unknown syscall",
			&guard.Operation{SyscallNum: 9999},
			"syscall-9999()",
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := describeOperation(test.op); got != test.want {
				t.Errorf("describeOperation: got %q, want %q", got, test.want)
			}
		})
	}
}
