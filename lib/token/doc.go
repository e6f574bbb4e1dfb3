// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package token acquires and caches bearer tokens for the two
// authorities.
//
// A [Provider] is one way of obtaining a token: a browser sign-in with
// a loopback redirect ([Interactive]), the device code flow
// ([DeviceCode]), a confidential client secret ([ClientCredentials]),
// the platform's managed identity endpoint ([ManagedIdentity]), or an
// already signed-in host command-line tool ([HostCLI]). [Select] picks
// one from the environment with fixed precedence: managed identity,
// then client secret, then the host CLI, then interactive sign-in.
//
// A [Broker] wraps one provider and hands out tokens per audience. It
// returns a cached token while it is valid for longer than the safety
// margin (five minutes by default), tries a silent refresh when the
// provider supports one, and only then acquires afresh. Tokens are
// persisted through a [Store]; [FileStore] keeps them in a private
// CBOR file, optionally sealed with age. An unreadable cache is a cache
// miss and a failed cache write is logged, never returned.
//
// A Broker is meant for one caller at a time. It still serializes
// get-or-acquire internally so concurrent use cannot corrupt its state.
package token
