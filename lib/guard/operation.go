// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"golang.org/x/sys/unix"
)

// Operation describes one syscall invocation abstractly: the syscall
// number and its arguments in positional order. An Operation is built
// fresh for each intercepted call, lives on that call's stack, and is
// never shared or reused.
type Operation struct {
	// SyscallNum is the architecture's number for the intercepted
	// syscall.
	SyscallNum int64 `cbor:"1,keyasint"`

	// Args are the syscall's arguments in the order the syscall
	// takes them. The daemon reconstructs the call positionally.
	Args []Arg `cbor:"2,keyasint"`
}

// ArgKind discriminates the Arg union. Every consumer switches on it
// and handles all variants; an unknown kind is a protocol error, not
// a silent default.
type ArgKind uint8

const (
	// ArgInt is a plain integer argument (flags, modes, domains).
	ArgInt ArgKind = iota + 1
	// ArgString is a NUL-terminated string argument, usually a path.
	ArgString
	// ArgBytes is an opaque byte blob whose shape only the daemon
	// interprets, such as a sockaddr of caller-supplied length.
	ArgBytes
	// ArgDirFd is a directory-fd argument. It must be resolved to a
	// path form before the Operation leaves the process.
	ArgDirFd
	// ArgSocket is a socket descriptor argument, transplanted
	// out-of-band rather than encoded inline.
	ArgSocket
)

// Arg is one syscall argument, a tagged union over the five supported
// shapes. Exactly the field selected by Kind is meaningful.
type Arg struct {
	Kind   ArgKind `cbor:"1,keyasint"`
	Int    int64   `cbor:"2,keyasint,omitempty"`
	Str    string  `cbor:"3,keyasint,omitempty"`
	Bytes  []byte  `cbor:"4,keyasint,omitempty"`
	DirFd  *DirFd  `cbor:"5,keyasint,omitempty"`
	Socket *Socket `cbor:"6,keyasint,omitempty"`
}

// DirFdForm discriminates the two forms of a directory-fd argument.
type DirFdForm uint8

const (
	// DirFdRaw is a descriptor number in the calling process's
	// table. Meaningless across a process boundary.
	DirFdRaw DirFdForm = iota + 1
	// DirFdPath is an absolute path, valid anywhere.
	DirFdPath
)

// DirFd identifies a base directory either by raw descriptor or by
// absolute path. The resolver (intercept.ResolveDescriptors) rewrites
// every raw form to a path before the Operation is sent.
type DirFd struct {
	Form DirFdForm `cbor:"1,keyasint"`
	FD   int32     `cbor:"2,keyasint,omitempty"`
	Path string    `cbor:"3,keyasint,omitempty"`
}

// Socket carries a socket descriptor argument. When the descriptor is
// queued for transplantation the resolver clears FD so the number
// does not also travel inline; the daemon maps the transplanted
// descriptor back by position.
type Socket struct {
	FD int32 `cbor:"1,keyasint,omitempty"`
}

// IntArg builds a plain integer argument.
func IntArg(v int64) Arg {
	return Arg{Kind: ArgInt, Int: v}
}

// StringArg builds a string argument.
func StringArg(s string) Arg {
	return Arg{Kind: ArgString, Str: s}
}

// BytesArg builds an opaque byte-blob argument.
func BytesArg(b []byte) Arg {
	return Arg{Kind: ArgBytes, Bytes: b}
}

// DirFdArg builds a directory-fd argument in raw form.
func DirFdArg(fd int32) Arg {
	return Arg{Kind: ArgDirFd, DirFd: &DirFd{Form: DirFdRaw, FD: fd}}
}

// SocketArg builds a socket descriptor argument.
func SocketArg(fd int32) Arg {
	return Arg{Kind: ArgSocket, Socket: &Socket{FD: fd}}
}

// NewOpenOp encodes an open or openat call. Bare open is normalized
// by the caller to dirFD = AT_FDCWD so both spell identically.
func NewOpenOp(syscallNum int64, dirFD int32, path string, flags, mode int64) *Operation {
	return &Operation{
		SyscallNum: syscallNum,
		Args: []Arg{
			DirFdArg(dirFD),
			StringArg(path),
			IntArg(flags),
			IntArg(mode),
		},
	}
}

// NewUnlinkOp encodes an unlink or unlinkat call. Bare unlink uses
// dirFD = AT_FDCWD and flags = 0.
func NewUnlinkOp(syscallNum int64, dirFD int32, path string, flags int64) *Operation {
	return &Operation{
		SyscallNum: syscallNum,
		Args: []Arg{
			DirFdArg(dirFD),
			StringArg(path),
			IntArg(flags),
		},
	}
}

// NewAccessOp encodes an access or faccessat call. Bare access uses
// dirFD = AT_FDCWD and flags = 0.
func NewAccessOp(syscallNum int64, dirFD int32, path string, mode, flags int64) *Operation {
	return &Operation{
		SyscallNum: syscallNum,
		Args: []Arg{
			DirFdArg(dirFD),
			StringArg(path),
			IntArg(mode),
			IntArg(flags),
		},
	}
}

// NewSocketOp encodes a socket call from its three integer
// parameters.
func NewSocketOp(syscallNum, domain, typ, protocol int64) *Operation {
	return &Operation{
		SyscallNum: syscallNum,
		Args: []Arg{
			IntArg(domain),
			IntArg(typ),
			IntArg(protocol),
		},
	}
}

// NewBindOp encodes a bind call. The address travels as opaque bytes
// of exactly the caller-supplied length; its real structure is
// daemon-interpreted.
func NewBindOp(syscallNum int64, socketFD int32, addr []byte) *Operation {
	return &Operation{
		SyscallNum: syscallNum,
		Args: []Arg{
			SocketArg(socketFD),
			BytesArg(addr),
		},
	}
}

// AtFDCWD is the "current working directory" sentinel directory
// descriptor, re-exported so wire-schema consumers need not import
// the unix package for one constant.
const AtFDCWD int32 = unix.AT_FDCWD
