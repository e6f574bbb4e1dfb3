// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response reads. Every JSON response from
// an identity endpoint or authority API is read through ReadResponse so
// a misbehaving server cannot exhaust memory.
package netutil
