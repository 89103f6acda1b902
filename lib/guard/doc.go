// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package guard defines the wire schema shared by the interception
// layer, the elevation daemon, and the user's trusted agent: the
// syscall-agnostic Operation record, the challenge/credential/
// elevation message types, their frame tags, and the well-known
// socket locations. All three parties import this package so the
// protocol is defined once rather than mirrored.
//
// Types here are pure data with CBOR keyasint tags; they carry no
// behavior beyond construction helpers and credential signing. The
// rules for turning raw syscall state into an Operation — argument
// decoding, descriptor resolution, eligibility — live in the
// intercept package.
package guard
