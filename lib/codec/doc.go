// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for on-disk state.
//
// JSON is the format of everything that crosses a process boundary
// (authority APIs, CLI --json output). CBOR is used for the private
// token cache, where a compact deterministic encoding lets the cache
// file be fingerprinted and compared byte-for-byte. The encoder uses
// Core Deterministic Encoding (RFC 8949 §4.2); time values encode as
// RFC 3339 text with nanoseconds so expiry instants survive a round
// trip exactly.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
