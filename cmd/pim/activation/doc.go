// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package activation implements the commands that change the caller's
// own active grants: activate, deactivate, extend, and status. Each
// command resolves the role by display name before trying it as a
// definition ID, and picks the authority from the --scope path.
package activation
