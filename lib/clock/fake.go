// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance or Set is
// called. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	current time.Time
	pending []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// Fake returns a FakeClock stopped at initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After registers a waiter that fires when the clock reaches now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.pending = append(c.pending, fakeWaiter{deadline: c.current.Add(d), channel: channel})
	c.changed.Broadcast()
	return channel
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline has been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()
	c.Set(target)
}

// Set moves the clock to t. Moving backwards is allowed and fires
// nothing.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = t
	remaining := c.pending[:0]
	for _, waiter := range c.pending {
		if waiter.deadline.After(t) {
			remaining = append(remaining, waiter)
			continue
		}
		waiter.channel <- t
	}
	c.pending = remaining
	c.changed.Broadcast()
}

// WaitForTimers blocks until at least n waiters are pending. Tests call
// it before Advance so a goroutine's After registration cannot race the
// time change.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of registered, unfired waiters.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
