// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts small blobs to an age X25519 identity.
//
// The token cache uses it to keep refresh tokens unreadable at rest:
// the cache file is sealed to the recipient derived from a local
// identity file and opened with that identity. Identities and
// decrypted plaintext are returned in [secret.Buffer] values.
package sealed
