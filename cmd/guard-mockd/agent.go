// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/AurioPinto/guardian-agent/lib/frame"
	"github.com/AurioPinto/guardian-agent/lib/guard"
	"github.com/AurioPinto/guardian-agent/lib/opdigest"
)

// handleAgent runs the trusted agent's half: one credential request
// in, one response out. The mock recomputes the digest before
// approving, exactly like a real agent, so a request whose digest
// does not match its operation is denied rather than signed.
func (m *mockDaemon) handleAgent(conn *frame.Conn) {
	var request guard.CredentialRequest
	if err := conn.Receive(guard.TagCredentialRequest, &request); err != nil {
		m.logger.Debug("bad credential request", "error", err)
		return
	}

	digest, err := opdigest.Operation(request.Op, request.Challenge.Nonce)
	if err != nil {
		m.logger.Warn("computing operation digest", "error", err)
		return
	}
	if !opdigest.Equal(digest, request.Digest) {
		m.logger.Warn("credential request digest does not match operation")
		m.respond(conn, guard.CredentialResponse{Status: guard.StatusDenied})
		return
	}

	if m.deny || (m.prompt && !m.approveInteractively(request.Op)) {
		m.logger.Info("denying credential request", "op", describeOperation(request.Op))
		m.respond(conn, guard.CredentialResponse{Status: guard.StatusDenied})
		return
	}

	credential, err := guard.SignCredential(m.privateKey, guard.NewClaims(digest, request.Challenge))
	if err != nil {
		m.logger.Error("signing credential", "error", err)
		return
	}
	m.logger.Info("approving credential request", "op", describeOperation(request.Op))
	m.respond(conn, guard.CredentialResponse{
		Status:     guard.StatusApproved,
		Credential: credential,
	})
}

func (m *mockDaemon) respond(conn *frame.Conn, response guard.CredentialResponse) {
	if err := conn.Send(guard.TagCredentialResponse, response); err != nil {
		m.logger.Debug("sending credential response", "error", err)
	}
}

// approveInteractively shows the operation on stderr and reads a
// y/N answer from the terminal on stdin.
func (m *mockDaemon) approveInteractively(op *guard.Operation) bool {
	fmt.Fprintf(os.Stderr, "guard-mockd: elevate %s? [y/N] ", describeOperation(op))
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// describeOperation renders an operation for logs and prompts:
// the syscall name followed by its arguments.
func describeOperation(op *guard.Operation) string {
	var builder strings.Builder
	if kind, ok := guard.KindOf(op.SyscallNum); ok {
		builder.WriteString(kind.String())
	} else {
		fmt.Fprintf(&builder, "syscall-%d", op.SyscallNum)
	}
	builder.WriteString("(")
	for i, arg := range op.Args {
		if i > 0 {
			builder.WriteString(", ")
		}
		switch arg.Kind {
		case guard.ArgInt:
			fmt.Fprintf(&builder, "%d", arg.Int)
		case guard.ArgString:
			fmt.Fprintf(&builder, "%q", arg.Str)
		case guard.ArgBytes:
			fmt.Fprintf(&builder, "<%d bytes>", len(arg.Bytes))
		case guard.ArgDirFd:
			if arg.DirFd.Form == guard.DirFdPath {
				fmt.Fprintf(&builder, "dir:%q", arg.DirFd.Path)
			} else {
				fmt.Fprintf(&builder, "dirfd:%d", arg.DirFd.FD)
			}
		case guard.ArgSocket:
			builder.WriteString("sock")
		default:
			builder.WriteString("?")
		}
	}
	builder.WriteString(")")
	return builder.String()
}
