// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eligibility implements the administrative commands that grant
// and withdraw standing eligibility for another principal: assign and
// remove.
package eligibility
