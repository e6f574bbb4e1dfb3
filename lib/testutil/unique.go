// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer.
//
//	requestID := testutil.UniqueID("request") // "request-1", "request-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
