// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import "fmt"

// Frame tags, one per protocol step, in order of appearance during a
// negotiation. The first four flow on the elevation daemon socket,
// the middle two on the agent socket.
const (
	TagChallengeRequest   byte = 0x01
	TagChallengeResponse  byte = 0x02
	TagCredentialRequest  byte = 0x03
	TagCredentialResponse byte = 0x04
	TagElevationRequest   byte = 0x05
	TagElevationResponse  byte = 0x06
)

// ChallengeRequest asks the elevation daemon for a fresh challenge.
// It carries no fields; the connection itself scopes the challenge.
type ChallengeRequest struct{}

// Challenge is a freshly issued, single-use value proving an
// elevation request is live rather than replayed. It is requested
// anew for every attempt and never reused.
type Challenge struct {
	// Nonce is the daemon's random single-use value.
	Nonce []byte `cbor:"1,keyasint"`

	// IssuedAt is a Unix timestamp (seconds) of issue, for daemon-
	// side expiry of stale challenges.
	IssuedAt int64 `cbor:"2,keyasint"`
}

// CredentialRequest asks the user's trusted agent to authorize one
// (Operation, Challenge) pair.
type CredentialRequest struct {
	// Op is the pending operation, already path-resolved.
	Op *Operation `cbor:"1,keyasint"`

	// Challenge is the value just issued by the elevation daemon.
	Challenge Challenge `cbor:"2,keyasint"`

	// Digest is the BLAKE3 binding of Op to Challenge.Nonce
	// (lib/opdigest). The agent recomputes it before signing so a
	// credential can never be detached from the operation it
	// authorizes.
	Digest []byte `cbor:"3,keyasint"`
}

// CredentialStatus is the agent's decision on a credential request.
type CredentialStatus uint8

const (
	// StatusApproved means the agent signed a credential.
	StatusApproved CredentialStatus = 1
	// StatusDenied means the agent's policy (or its user) refused.
	StatusDenied CredentialStatus = 2
)

// String returns the status name for diagnostics.
func (s CredentialStatus) String() string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusDenied:
		return "denied"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// CredentialResponse is the agent's answer. Credential is set only
// when Status is StatusApproved.
type CredentialResponse struct {
	Status     CredentialStatus `cbor:"1,keyasint"`
	Credential *Credential      `cbor:"2,keyasint,omitempty"`
}

// ElevationRequest asks the elevation daemon to perform the
// operation with elevated rights. Any descriptors the operation
// needs travel out-of-band on the same frame, ordered to match the
// raw directory-fd and socket arguments encountered during
// resolution.
type ElevationRequest struct {
	Op         *Operation  `cbor:"1,keyasint"`
	Credential *Credential `cbor:"2,keyasint"`
}

// ElevationResponse is the daemon's result. When IsResultFD is set
// the true result is the first descriptor transplanted alongside
// this frame and Result is meaningless; otherwise Result is the
// syscall return value directly.
type ElevationResponse struct {
	IsResultFD bool  `cbor:"1,keyasint,omitempty"`
	Result     int64 `cbor:"2,keyasint,omitempty"`
}
