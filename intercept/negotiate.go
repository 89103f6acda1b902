// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/fdesc"
	"github.com/AurioPinto/guardian-agent/lib/frame"
	"github.com/AurioPinto/guardian-agent/lib/guard"
	"github.com/AurioPinto/guardian-agent/lib/opdigest"
)

// DeniedError reports that the trusted agent answered a credential
// request with a non-approved status. Control flow treats it like any
// other failed negotiation — the original errno stands — but
// diagnostics distinguish a policy "no" from a broken wire.
type DeniedError struct {
	Status guard.CredentialStatus
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("intercept: credential request not approved: %s", e.Status)
}

// errNoResultDescriptor is the hard failure for a response that
// claims a descriptor result but transplanted nothing.
var errNoResultDescriptor = errors.New("intercept: descriptor result arrived without a descriptor")

// Result is the unwrapped outcome of a successful negotiation:
// either a transplanted descriptor or a plain numeric value.
type Result struct {
	// FD is the transplanted descriptor when the daemon's response
	// marked the result as one, nil otherwise. The caller takes
	// ownership.
	FD *fdesc.FD

	// Value is the numeric syscall result when FD is nil.
	Value int64
}

// Negotiator drives one elevation negotiation: challenge from the
// elevation daemon, credential from the user's trusted agent,
// elevation request back on the original daemon connection. All I/O
// is blocking and every phase uses a connection opened for this
// attempt alone.
type Negotiator struct {
	// GuardoSocket is the elevation daemon endpoint.
	GuardoSocket string

	// AgentSocket is the trusted agent endpoint.
	AgentSocket string

	Logger *slog.Logger
}

// Elevate runs the full negotiation for op, transplanting
// transplantFDs alongside the elevation request. Any failure at any
// step returns an error and nothing else: the negotiator never
// fabricates a success.
func (n *Negotiator) Elevate(op *guard.Operation, transplantFDs []int) (*Result, error) {
	guardoConn, err := frame.Dial(n.GuardoSocket)
	if err != nil {
		return nil, fmt.Errorf("connecting to elevation daemon: %w", err)
	}
	defer guardoConn.Close()

	if err := guardoConn.Send(guard.TagChallengeRequest, guard.ChallengeRequest{}); err != nil {
		return nil, fmt.Errorf("requesting challenge: %w", err)
	}
	var challenge guard.Challenge
	if err := guardoConn.Receive(guard.TagChallengeResponse, &challenge); err != nil {
		return nil, fmt.Errorf("reading challenge: %w", err)
	}

	credential, err := n.requestCredential(op, challenge)
	if err != nil {
		return nil, err
	}

	// Back on the daemon connection that issued the challenge; the
	// connection scopes the challenge to this attempt.
	request := guard.ElevationRequest{Op: op, Credential: credential}
	if err := guardoConn.SendFDs(guard.TagElevationRequest, request, transplantFDs); err != nil {
		return nil, fmt.Errorf("sending elevation request: %w", err)
	}

	var response guard.ElevationResponse
	resultFDs, err := guardoConn.ReceiveFDs(guard.TagElevationResponse, &response)
	if err != nil {
		return nil, fmt.Errorf("reading elevation response: %w", err)
	}

	if response.IsResultFD {
		if len(resultFDs) == 0 {
			return nil, errNoResultDescriptor
		}
		closeDescriptors(resultFDs[1:])
		resultFD, err := fdesc.New(resultFDs[0])
		if err != nil {
			return nil, err
		}
		return &Result{FD: resultFD}, nil
	}
	closeDescriptors(resultFDs)
	return &Result{Value: response.Result}, nil
}

// requestCredential asks the trusted agent to authorize the
// (operation, challenge) pair, over a fresh connection distinct from
// the elevation daemon's.
func (n *Negotiator) requestCredential(op *guard.Operation, challenge guard.Challenge) (*guard.Credential, error) {
	digest, err := opdigest.Operation(op, challenge.Nonce)
	if err != nil {
		return nil, err
	}

	agentConn, err := frame.Dial(n.AgentSocket)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent: %w", err)
	}
	defer agentConn.Close()

	request := guard.CredentialRequest{
		Op:        op,
		Challenge: challenge,
		Digest:    digest,
	}
	if err := agentConn.Send(guard.TagCredentialRequest, request); err != nil {
		return nil, fmt.Errorf("sending credential request: %w", err)
	}

	var response guard.CredentialResponse
	if err := agentConn.Receive(guard.TagCredentialResponse, &response); err != nil {
		return nil, fmt.Errorf("reading credential response: %w", err)
	}
	if response.Status != guard.StatusApproved {
		return nil, &DeniedError{Status: response.Status}
	}
	if response.Credential == nil {
		return nil, fmt.Errorf("%w: approved response carries no credential", frame.ErrProtocol)
	}
	return response.Credential, nil
}

// closeDescriptors releases descriptors the negotiation received but
// does not pass on.
func closeDescriptors(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
