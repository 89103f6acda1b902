// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// guard-mockd is a development stand-in for both guard daemons. It
// serves the elevation daemon socket and the trusted agent socket
// from one process, speaks the real challenge/credential/elevation
// protocol, and executes approved operations without actual
// privilege elevation — whatever the mock's own user can do, it does.
//
// Intended for developing and exercising the interception layer on a
// machine with no real daemons installed:
//
//	guard-mockd --socket-dir /tmp/scratch --prompt
//
// With --prompt and a terminal on stdin, every credential request is
// shown and must be approved interactively. Without it, requests are
// approved automatically. --deny refuses everything, for testing the
// denial path end to end.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

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
	var socketDir string
	var agentSocket string
	var deny bool
	var prompt bool
	var logLevel string
	var showVersion bool

	flagSet := pflag.NewFlagSet("guard-mockd", pflag.ContinueOnError)
	flagSet.StringVar(&socketDir, "socket-dir", os.TempDir(), "directory for the elevation daemon socket")
	flagSet.StringVar(&agentSocket, "agent-socket", guard.AgentSocketPath(), "path of the trusted agent socket")
	flagSet.BoolVar(&deny, "deny", false, "deny every credential request")
	flagSet.BoolVar(&prompt, "prompt", false, "ask interactively before approving (requires a terminal)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("guard-mockd %s\n", version.Info())
		return nil
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating agent keypair: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := &mockDaemon{
		guardoSocket: filepath.Join(socketDir, guard.GuardoSocketName),
		agentSocket:  agentSocket,
		publicKey:    publicKey,
		privateKey:   privateKey,
		deny:         deny,
		prompt:       prompt && term.IsTerminal(int(os.Stdin.Fd())),
		logger:       logger,
	}

	serveErrors := make(chan error, 2)
	go func() { serveErrors <- mock.serveGuardo(ctx) }()
	go func() { serveErrors <- mock.serveAgent(ctx) }()

	// First listener failure (or signal-driven shutdown) wins; the
	// second serve returns through context cancellation.
	err = <-serveErrors
	stop()
	<-serveErrors
	return err
}

// newLogger builds the command logger: human-readable text on a
// terminal, JSON when output is redirected.
func newLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	options := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler), nil
}
