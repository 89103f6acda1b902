// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package opdigest computes the digest binding an Operation to a
// challenge nonce.
//
// The digest is a BLAKE3 keyed hash over the operation's canonical
// CBOR encoding followed by the nonce. The interception layer sends
// it with the credential request, the agent recomputes it before
// signing, and the elevation daemon recomputes it again before
// executing — so a signed credential cannot be detached from the one
// operation and the one challenge it authorizes. Keyed hashing with a
// fixed domain key keeps these digests from colliding with any other
// BLAKE3 use of the same bytes.
package opdigest

import (
	"crypto/subtle"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/AurioPinto/guardian-agent/lib/codec"
	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// Size is the digest length in bytes.
const Size = 32

// operationDomainKey is the fixed BLAKE3 key for operation digests.
// Changing it invalidates every outstanding credential. The bytes are
// the ASCII domain name zero-padded to 32, readable in hex dumps
// without costing any cryptographic property.
var operationDomainKey = [32]byte{
	'g', 'u', 'a', 'r', 'd', 'i', 'a', 'n', '.', 'o', 'p', '.',
	'c', 'h', 'a', 'l', 'l', 'e', 'n', 'g', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Operation hashes op's canonical CBOR encoding together with the
// challenge nonce. Deterministic encoding (lib/codec) guarantees both
// ends of a negotiation derive identical bytes from equal operations.
func Operation(op *guard.Operation, nonce []byte) ([]byte, error) {
	encoded, err := codec.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("opdigest: encoding operation: %w", err)
	}
	hasher, err := blake3.NewKeyed(operationDomainKey[:])
	if err != nil {
		return nil, fmt.Errorf("opdigest: initializing keyed hasher: %w", err)
	}
	hasher.Write(encoded)
	hasher.Write(nonce)
	return hasher.Sum(nil), nil
}

// Equal compares two digests in constant time.
func Equal(a, b []byte) bool {
	if len(a) != Size || len(b) != Size {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
