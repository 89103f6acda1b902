// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// buildOperation decodes the raw ABI tuple for one supported syscall
// kind into a guard.Operation. eligible=false means the operation was
// deliberately rejected for elevation (execute check on a file with
// no execute bits) and the original error should stand without any
// network traffic.
func buildOperation(number int64, args [6]uintptr) (op *guard.Operation, eligible bool, err error) {
	kind, ok := guard.KindOf(number)
	if !ok {
		return nil, false, fmt.Errorf("intercept: no operation encoding for syscall %d", number)
	}

	switch kind {
	case guard.KindOpen:
		path, err := stringAt(args[0])
		if err != nil {
			return nil, false, err
		}
		return guard.NewOpenOp(number, guard.AtFDCWD, path, int64(args[1]), int64(args[2])), true, nil

	case guard.KindOpenat:
		path, err := stringAt(args[1])
		if err != nil {
			return nil, false, err
		}
		return guard.NewOpenOp(number, int32(args[0]), path, int64(args[2]), int64(args[3])), true, nil

	case guard.KindUnlink:
		path, err := stringAt(args[0])
		if err != nil {
			return nil, false, err
		}
		return guard.NewUnlinkOp(number, guard.AtFDCWD, path, 0), true, nil

	case guard.KindUnlinkat:
		path, err := stringAt(args[1])
		if err != nil {
			return nil, false, err
		}
		return guard.NewUnlinkOp(number, int32(args[0]), path, int64(args[2])), true, nil

	case guard.KindAccess:
		path, err := stringAt(args[0])
		if err != nil {
			return nil, false, err
		}
		mode := int64(args[1])
		return guard.NewAccessOp(number, guard.AtFDCWD, path, mode, 0), shouldElevateAccess(path, mode), nil

	case guard.KindFaccessat:
		path, err := stringAt(args[1])
		if err != nil {
			return nil, false, err
		}
		mode := int64(args[2])
		return guard.NewAccessOp(number, int32(args[0]), path, mode, int64(args[3])), shouldElevateAccess(path, mode), nil

	case guard.KindSocket:
		return guard.NewSocketOp(number, int64(args[0]), int64(args[1]), int64(args[2])), true, nil

	case guard.KindBind:
		addr, err := bytesAt(args[1], int64(args[2]))
		if err != nil {
			return nil, false, err
		}
		return guard.NewBindOp(number, int32(args[0]), addr), true, nil
	}
	return nil, false, fmt.Errorf("intercept: no operation encoding for syscall kind %s", kind)
}

// shouldElevateAccess rejects execute-permission checks against files
// with no execute bit for owner, group, or other: such a check cannot
// succeed at any privilege, so elevation would only generate traffic.
// Best-effort: the stat races against concurrent permission changes,
// and an unreadable or missing file defers the decision to the
// daemon.
func shouldElevateAccess(path string, mode int64) bool {
	if mode != unix.X_OK {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
