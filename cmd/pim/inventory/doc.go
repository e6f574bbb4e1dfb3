// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inventory implements the read-only commands: eligible,
// active, roles, and policy. They print tables by default and the
// underlying records with --json.
package inventory
