// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// guard-probe runs one elevation negotiation from the command line,
// without any interception mechanism involved. It builds the
// requested operation, resolves its descriptors exactly as the hook
// would, drives the challenge/credential/elevation exchanges against
// the real (or mock) daemons, and prints the outcome. Useful for
// checking daemon reachability and exercising the protocol while
// developing agent policy.
//
//	guard-probe --syscall openat --path secret --flags 0 --mode 0
//	guard-probe --syscall socket --domain 2 --type 1 --protocol 0
//	guard-probe --syscall bind --bind-path /run/myservice.sock
package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/AurioPinto/guardian-agent/intercept"
	"github.com/AurioPinto/guardian-agent/lib/config"
	"github.com/AurioPinto/guardian-agent/lib/guard"
	"github.com/AurioPinto/guardian-agent/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var syscallName string
	var path string
	var dirFD int32
	var flags, mode int64
	var domain, socketType, protocol int64
	var bindPath string
	var guardoSocket, agentSocket string
	var showVersion bool

	flagSet := pflag.NewFlagSet("guard-probe", pflag.ContinueOnError)
	flagSet.StringVar(&syscallName, "syscall", "openat", "syscall kind: open, openat, unlink, unlinkat, access, faccessat, socket, bind")
	flagSet.StringVar(&path, "path", "", "path argument for the path-taking kinds")
	flagSet.Int32Var(&dirFD, "dirfd", guard.AtFDCWD, "directory fd argument (default: current working directory)")
	flagSet.Int64Var(&flags, "flags", 0, "flags argument")
	flagSet.Int64Var(&mode, "mode", 0, "mode argument")
	flagSet.Int64Var(&domain, "domain", int64(unix.AF_INET), "socket domain")
	flagSet.Int64Var(&socketType, "type", int64(unix.SOCK_STREAM), "socket type")
	flagSet.Int64Var(&protocol, "protocol", 0, "socket protocol")
	flagSet.StringVar(&bindPath, "bind-path", "", "unix socket path for the bind kind")
	flagSet.StringVar(&guardoSocket, "guardo-socket", "", "elevation daemon socket (default: configured or well-known path)")
	flagSet.StringVar(&agentSocket, "agent-socket", "", "agent socket (default: configured or well-known path)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("guard-probe %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if guardoSocket == "" {
		guardoSocket = cfg.GuardoSocket()
	}
	if agentSocket == "" {
		agentSocket = cfg.AgentSocketPath()
	}

	op, cleanup, err := buildOperation(syscallName, operationArgs{
		path:       path,
		dirFD:      dirFD,
		flags:      flags,
		mode:       mode,
		domain:     domain,
		socketType: socketType,
		protocol:   protocol,
		bindPath:   bindPath,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	transplantFDs, cwd, err := intercept.ResolveDescriptors(op)
	if err != nil {
		return err
	}
	if cwd != nil {
		defer cwd.Close()
	}

	negotiator := intercept.Negotiator{
		GuardoSocket: guardoSocket,
		AgentSocket:  agentSocket,
		Logger:       newLogger(),
	}
	result, err := negotiator.Elevate(op, transplantFDs)
	if err != nil {
		return fmt.Errorf("negotiation failed: %w", err)
	}

	if result.FD != nil {
		fd := result.FD.Release()
		fmt.Printf("elevated: descriptor result, fd %d\n", fd)
		unix.Close(fd)
		return nil
	}
	fmt.Printf("elevated: result %d\n", result.Value)
	return nil
}

// operationArgs collects every flag any kind might need; each kind
// reads its own subset.
type operationArgs struct {
	path       string
	dirFD      int32
	flags      int64
	mode       int64
	domain     int64
	socketType int64
	protocol   int64
	bindPath   string
}

// buildOperation constructs the operation for the requested kind.
// The bind kind creates a scratch socket to stand in for the
// intercepted process's descriptor; cleanup closes it.
func buildOperation(name string, args operationArgs) (op *guard.Operation, cleanup func(), err error) {
	cleanup = func() {}

	kind, err := guard.ParseSyscallKind(name)
	if err != nil {
		return nil, cleanup, err
	}
	number, ok := guard.NumberOf(kind)
	if !ok {
		return nil, cleanup, fmt.Errorf("syscall %s does not exist on this architecture", name)
	}

	switch kind {
	case guard.KindOpen, guard.KindOpenat:
		if args.path == "" {
			return nil, cleanup, fmt.Errorf("%s requires --path", name)
		}
		return guard.NewOpenOp(number, args.dirFD, args.path, args.flags, args.mode), cleanup, nil

	case guard.KindUnlink, guard.KindUnlinkat:
		if args.path == "" {
			return nil, cleanup, fmt.Errorf("%s requires --path", name)
		}
		return guard.NewUnlinkOp(number, args.dirFD, args.path, args.flags), cleanup, nil

	case guard.KindAccess, guard.KindFaccessat:
		if args.path == "" {
			return nil, cleanup, fmt.Errorf("%s requires --path", name)
		}
		return guard.NewAccessOp(number, args.dirFD, args.path, args.mode, args.flags), cleanup, nil

	case guard.KindSocket:
		return guard.NewSocketOp(number, args.domain, args.socketType, args.protocol), cleanup, nil

	case guard.KindBind:
		if args.bindPath == "" {
			return nil, cleanup, fmt.Errorf("bind requires --bind-path")
		}
		socketFD, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating scratch socket: %w", err)
		}
		cleanup = func() { unix.Close(socketFD) }
		return guard.NewBindOp(number, int32(socketFD), unixSockaddr(args.bindPath)), cleanup, nil
	}
	return nil, cleanup, fmt.Errorf("unsupported syscall kind %s", name)
}

// unixSockaddr encodes a struct sockaddr_un for the given path: the
// AF_UNIX family in native byte order followed by the NUL-terminated
// path.
func unixSockaddr(path string) []byte {
	addr := make([]byte, 2+len(path)+1)
	binary.NativeEndian.PutUint16(addr[0:2], uint16(unix.AF_UNIX))
	copy(addr[2:], path)
	return addr
}

// newLogger writes text on a terminal, JSON when redirected.
func newLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
