// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pim is the entry point for callers: it composes the token
// broker, the role resolver, the request engine, and the two authority
// clients into the operations a person performs.
//
// Every operation takes a scope; the scope's kind picks the authority.
// A directory scope ("/" or "/administrativeUnits/{id}") goes to the
// directory authority, a subscription path to the resource authority.
// Role arguments may be display names or definition IDs.
//
// Operations submit exactly once and return what the authority echoed.
// Nothing here retries; Wait is the one explicit poll loop, and callers
// invoke it themselves.
package pim
