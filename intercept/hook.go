// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"errors"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/config"
	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// SyscallFunc invokes the original, unintercepted syscall and returns
// its raw result: the return value on success, the negated errno on
// failure. The interception mechanism supplies it at registration
// time.
type SyscallFunc func(number int64, args [6]uintptr) int64

// Interceptor is the syscall filter: the entry point invoked on every
// intercepted syscall. It holds only immutable configuration — each
// attempt builds its own Operation, connections, and descriptors, so
// any number of threads may run through one Interceptor concurrently.
type Interceptor struct {
	rawSyscall SyscallFunc
	negotiator Negotiator
	logger     *slog.Logger
	disabled   bool
}

// New builds an Interceptor around the mechanism-provided raw syscall
// function. A nil cfg means defaults (sockets at their well-known
// locations); a nil logger gets a text handler on stderr at the
// configured level.
func New(rawSyscall SyscallFunc, cfg *config.Config, logger *slog.Logger) *Interceptor {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		level, err := cfg.SlogLevel()
		if err != nil {
			level = slog.LevelWarn
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return &Interceptor{
		rawSyscall: rawSyscall,
		negotiator: Negotiator{
			GuardoSocket: cfg.GuardoSocket(),
			AgentSocket:  cfg.AgentSocketPath(),
			Logger:       logger,
		},
		logger:   logger,
		disabled: cfg.Disabled,
	}
}

// Hook handles one intercepted syscall. The returned handled flag
// tells the mechanism whether result is authoritative; false means
// the syscall kind does not participate and the mechanism should let
// it through untouched.
//
// For participating kinds the real syscall always runs first, and its
// result stands unless it failed with a permission error and a full
// negotiation produced a replacement. Hook never panics and never
// returns an error: the mechanism's calling context cannot unwind.
func (i *Interceptor) Hook(number int64, args [6]uintptr) (result int64, handled bool) {
	if !participates(number) {
		return 0, false
	}

	real := i.rawSyscall(number, args)
	if real != -int64(unix.EACCES) && real != -int64(unix.EPERM) {
		return real, true
	}
	if i.disabled {
		return real, true
	}

	if elevated, ok := i.tryElevate(number, args); ok {
		return elevated, true
	}
	return real, true
}

// participates reports whether the syscall kind is on the elevation
// allow-list. Constant work; everything else passes through.
func participates(number int64) bool {
	_, ok := guard.KindOf(number)
	return ok
}

// tryElevate runs the whole elevation pipeline for one permission-
// denied syscall. Any error or panic anywhere below degrades to
// ok=false — elevation unavailable, original errno stands — and is
// logged rather than propagated.
func (i *Interceptor) tryElevate(number int64, args [6]uintptr) (result int64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("elevation attempt panicked",
				"syscall", number,
				"panic", r,
			)
			result, ok = 0, false
		}
	}()

	op, eligible, err := buildOperation(number, args)
	if err != nil {
		i.logger.Warn("building operation failed", "syscall", number, "error", err)
		return 0, false
	}
	if !eligible {
		i.logger.Debug("operation not eligible for elevation", "syscall", number)
		return 0, false
	}

	transplantFDs, cwd, err := ResolveDescriptors(op)
	if err != nil {
		i.logger.Warn("resolving descriptors failed", "syscall", number, "error", err)
		return 0, false
	}
	if cwd != nil {
		defer cwd.Close()
	}

	outcome, err := i.negotiator.Elevate(op, transplantFDs)
	if err != nil {
		var denied *DeniedError
		if errors.As(err, &denied) {
			i.logger.Info("elevation denied by agent", "syscall", number, "status", denied.Status)
		} else {
			i.logger.Warn("elevation negotiation failed", "syscall", number, "error", err)
		}
		return 0, false
	}

	if outcome.FD != nil {
		// The transplanted descriptor becomes the syscall's return
		// value; ownership passes to the intercepted process.
		return int64(outcome.FD.Release()), true
	}
	return outcome.Value, true
}
