// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package account implements the identity commands: login, logout,
// and whoami.
package account
