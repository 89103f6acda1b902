// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/fdesc"
	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// ResolveDescriptors prepares op to cross the process boundary. Raw
// directory-fd arguments are rewritten in place to absolute paths —
// the AT_FDCWD sentinel to the current working directory, everything
// else via the descriptor's /proc/self/fd entry — and socket
// arguments have their inline descriptor number cleared. The returned
// list holds the raw descriptors to transplant, in exactly the order
// they were encountered: the daemon maps them back by position.
//
// When any argument is the AT_FDCWD sentinel, the process's actual
// working directory is duplicated once and returned as cwd; the
// caller owns it and must keep it open until the descriptors have
// been sent.
func ResolveDescriptors(op *guard.Operation) (transplant []int, cwd *fdesc.FD, err error) {
	defer func() {
		if err != nil && cwd != nil {
			cwd.Close()
			cwd = nil
		}
	}()

	for i := range op.Args {
		arg := &op.Args[i]
		switch arg.Kind {
		case guard.ArgDirFd:
			dirFd := arg.DirFd
			if dirFd.Form != guard.DirFdRaw {
				continue
			}
			if dirFd.FD == guard.AtFDCWD {
				if cwd == nil {
					cwd, err = dupWorkingDirectory()
					if err != nil {
						return nil, cwd, err
					}
				}
				workingDirectory, err := os.Getwd()
				if err != nil {
					return nil, cwd, fmt.Errorf("intercept: resolving working directory path: %w", err)
				}
				transplant = append(transplant, cwd.Raw())
				setPath(dirFd, workingDirectory)
			} else {
				target, err := os.Readlink(fmt.Sprintf("/proc/self/fd/%d", dirFd.FD))
				if err != nil {
					return nil, cwd, fmt.Errorf("intercept: resolving directory fd %d: %w", dirFd.FD, err)
				}
				transplant = append(transplant, int(dirFd.FD))
				setPath(dirFd, target)
			}

		case guard.ArgSocket:
			// The descriptor travels out-of-band only; clear the
			// inline copy.
			transplant = append(transplant, int(arg.Socket.FD))
			arg.Socket.FD = 0
		}
	}
	return transplant, cwd, nil
}

// setPath rewrites a directory-fd argument to its path form.
func setPath(dirFd *guard.DirFd, path string) {
	dirFd.Form = guard.DirFdPath
	dirFd.Path = path
	dirFd.FD = 0
}

// dupWorkingDirectory opens a fresh descriptor on the current working
// directory. AT_FDCWD is a sentinel, not a real descriptor, so it
// cannot be transplanted directly.
func dupWorkingDirectory() (*fdesc.FD, error) {
	raw, err := unix.Openat(unix.AT_FDCWD, ".", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("intercept: duplicating AT_FDCWD: %w", err)
	}
	return fdesc.New(raw)
}
