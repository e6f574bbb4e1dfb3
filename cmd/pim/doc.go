// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Pim requests, extends, and revokes just-in-time privileged role
// access against the directory and resource authorities. Run
// "pim --help" for the command list.
package main
