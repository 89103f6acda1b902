// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the guardian agent's standard CBOR encoding
// configuration.
//
// Every message that crosses a guard socket — challenge, credential,
// and elevation exchanges — is CBOR inside the framed transport
// (lib/frame). This package holds the shared encoder and decoder modes
// so the hook, the CLI tools, and the mock daemons all encode
// identically without duplicating configuration.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, which is what
// makes the operation digest (lib/opdigest) meaningful: both sides of
// a negotiation can hash the canonical encoding and compare.
//
// Wire types use `cbor` keyasint struct tags. Nothing in this protocol
// is ever serialized as JSON.
package codec
