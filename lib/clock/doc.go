// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Token expiry checks, device-code polling, and request status polling
// all read time through a Clock so tests can drive them without real
// waiting. Production code uses Real(); tests use Fake() and move time
// forward with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go poll(c)
//	c.WaitForTimers(1)       // poll has registered its wait
//	c.Advance(5 * time.Second)
package clock
