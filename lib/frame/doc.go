// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame implements the guard socket wire framing: a 4-byte
// big-endian length prefix covering a 1-byte message tag plus a CBOR
// payload, carried over a connected Unix domain socket.
//
//	[length: uint32 BE] [tag: uint8] [payload: CBOR]
//
// Two send paths exist. Plain sends write the frame as ordinary
// stream data. Descriptor-carrying sends attach raw OS file
// descriptors as SCM_RIGHTS ancillary data alongside the frame, in
// order, for transplantation into the receiving process. Receives
// mirror both paths and validate the tag against the expected
// protocol step before decoding.
//
// Every malformed input — short read, oversized or undersized length,
// unexpected tag, undecodable payload — is reported as an error
// wrapping ErrProtocol. Framing errors abort the negotiation they
// occur in and nothing else.
package frame
