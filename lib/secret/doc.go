// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds sensitive bytes (client secrets, cache sealing
// keys) outside the Go heap.
//
// A [Buffer] is an anonymous mmap region locked into RAM and excluded
// from core dumps. Close zeroes, unlocks, and unmaps it; any access
// after Close panics. [ReadFromPath] loads a secret file (or stdin)
// straight into a Buffer and zeroes the intermediate heap copy.
package secret
