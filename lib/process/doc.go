// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the pim entrypoint's last step: reporting the
// error run() returned and choosing the exit status. It is the one
// place outside the command packages that writes to stderr directly,
// since the command logger may never have been built.
package process
