// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/AurioPinto/guardian-agent/lib/codec"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize // 64 bytes

// Credential is the authorization artifact issued by the trusted
// agent: CBOR-encoded CredentialClaims followed by a 64-byte Ed25519
// signature. The interception layer treats it as opaque bytes — it
// holds no keys and forwards the credential unmodified. Only the
// elevation daemon verifies. A credential is bound to exactly one
// (Operation, Challenge) pair and must never be cached or replayed.
type Credential struct {
	Token []byte `cbor:"1,keyasint"`
}

// CredentialClaims is the signed payload of a Credential.
type CredentialClaims struct {
	// Digest is the BLAKE3 operation digest the agent approved
	// (lib/opdigest): the binding of one Operation to one challenge
	// nonce.
	Digest []byte `cbor:"1,keyasint"`

	// Nonce echoes the challenge nonce so the daemon can match the
	// credential to the challenge it issued without re-deriving the
	// digest first.
	Nonce []byte `cbor:"2,keyasint"`

	// IssuedAt is a Unix timestamp (seconds) of when the agent
	// signed.
	IssuedAt int64 `cbor:"3,keyasint"`
}

// Errors returned by VerifyCredential.
var (
	ErrCredentialTooShort = errors.New("guard: credential too short for signature")
	ErrBadSignature       = errors.New("guard: invalid credential signature")
)

// SignCredential signs claims with the agent's private key and
// returns the wire credential. Used by the agent and by test stubs;
// the hook never signs.
func SignCredential(privateKey ed25519.PrivateKey, claims *CredentialClaims) (*Credential, error) {
	payload, err := codec.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("guard: encoding credential claims: %w", err)
	}
	signature := ed25519.Sign(privateKey, payload)
	token := make([]byte, len(payload)+signatureSize)
	copy(token, payload)
	copy(token[len(payload):], signature)
	return &Credential{Token: token}, nil
}

// VerifyCredential splits the credential, checks the Ed25519
// signature, and decodes the claims. Daemon-side only; the hook
// forwards credentials without inspecting them.
func VerifyCredential(publicKey ed25519.PublicKey, credential *Credential) (*CredentialClaims, error) {
	if credential == nil || len(credential.Token) <= signatureSize {
		return nil, ErrCredentialTooShort
	}
	splitPoint := len(credential.Token) - signatureSize
	payload := credential.Token[:splitPoint]
	signature := credential.Token[splitPoint:]
	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrBadSignature
	}
	var claims CredentialClaims
	if err := codec.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("guard: decoding credential claims: %w", err)
	}
	return &claims, nil
}

// NewClaims builds claims for the given digest and challenge at the
// current time.
func NewClaims(digest []byte, challenge Challenge) *CredentialClaims {
	return &CredentialClaims{
		Digest:   digest,
		Nonce:    challenge.Nonce,
		IssuedAt: time.Now().Unix(),
	}
}
