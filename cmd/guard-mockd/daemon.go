// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/frame"
	"github.com/AurioPinto/guardian-agent/lib/guard"
	"github.com/AurioPinto/guardian-agent/lib/opdigest"
)

// mockDaemon serves both guard roles. The keypair is generated fresh
// per run and shared between the two halves — in a real deployment
// the daemon learns the agent's public key out of band.
type mockDaemon struct {
	guardoSocket string
	agentSocket  string
	publicKey    ed25519.PublicKey
	privateKey   ed25519.PrivateKey
	deny         bool
	prompt       bool
	logger       *slog.Logger
}

// serveGuardo accepts elevation daemon connections until ctx is
// cancelled, then waits for in-flight negotiations to finish.
func (m *mockDaemon) serveGuardo(ctx context.Context) error {
	return m.serve(ctx, m.guardoSocket, "guardo", m.handleGuardo)
}

// serveAgent accepts trusted agent connections.
func (m *mockDaemon) serveAgent(ctx context.Context) error {
	return m.serve(ctx, m.agentSocket, "agent", m.handleAgent)
}

// serve is the shared listener loop. Any stale socket file at the
// path is removed before listening; the socket file is removed on
// return.
func (m *mockDaemon) serve(ctx context.Context, socketPath, role string, handle func(*frame.Conn)) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", socketPath, err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	m.logger.Info("listening", "role", role, "path", socketPath)

	var activeConnections sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			m.logger.Error("accept failed", "role", role, "error", err)
			continue
		}
		activeConnections.Add(1)
		go func() {
			defer activeConnections.Done()
			framed := frame.NewConn(conn.(*net.UnixConn))
			defer framed.Close()
			handle(framed)
		}()
	}
	activeConnections.Wait()
	return nil
}

// handleGuardo runs the elevation daemon's half of one negotiation:
// challenge out, elevation request in, operation executed, result
// back. Closing the connection without a response is how any
// violation is reported — the client treats it as a protocol failure
// and keeps its original errno.
func (m *mockDaemon) handleGuardo(conn *frame.Conn) {
	var challengeRequest guard.ChallengeRequest
	if err := conn.Receive(guard.TagChallengeRequest, &challengeRequest); err != nil {
		m.logger.Debug("bad challenge request", "error", err)
		return
	}

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		m.logger.Error("generating challenge nonce", "error", err)
		return
	}
	challenge := guard.Challenge{Nonce: nonce, IssuedAt: time.Now().Unix()}
	if err := conn.Send(guard.TagChallengeResponse, challenge); err != nil {
		m.logger.Debug("sending challenge", "error", err)
		return
	}

	var elevation guard.ElevationRequest
	transplanted, err := conn.ReceiveFDs(guard.TagElevationRequest, &elevation)
	if err != nil {
		m.logger.Debug("bad elevation request", "error", err)
		return
	}
	defer closeDescriptors(transplanted)

	claims, err := guard.VerifyCredential(m.publicKey, elevation.Credential)
	if err != nil {
		m.logger.Warn("credential verification failed", "error", err)
		return
	}
	digest, err := opdigest.Operation(elevation.Op, challenge.Nonce)
	if err != nil {
		m.logger.Warn("computing operation digest", "error", err)
		return
	}
	if !opdigest.Equal(claims.Digest, digest) {
		m.logger.Warn("credential not bound to this operation and challenge")
		return
	}

	outcome := execute(elevation.Op, transplanted, m.logger)
	if outcome.fd >= 0 {
		err = conn.SendFDs(guard.TagElevationResponse, guard.ElevationResponse{IsResultFD: true}, []int{outcome.fd})
		unix.Close(outcome.fd)
	} else {
		err = conn.Send(guard.TagElevationResponse, guard.ElevationResponse{Result: outcome.value})
	}
	if err != nil {
		m.logger.Debug("sending elevation response", "error", err)
	}
}

// closeDescriptors releases descriptors received with a request once
// the operation no longer needs them.
func closeDescriptors(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
