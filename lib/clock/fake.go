// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only through Advance. Safe for
// concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time

	// timers is kept ordered by due time; stopped tickers are removed
	// eagerly so len(timers) is the pending count.
	timers     []*fakeTimer
	registered *sync.Cond
}

type fakeTimer struct {
	due    time.Time
	fire   chan time.Time
	period time.Duration // zero for one-shot After timers
}

// Fake returns a FakeClock standing at start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.registered = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	fire := make(chan time.Time, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		fire <- c.now
		return fire
	}
	c.scheduleLocked(&fakeTimer{due: c.now.Add(d), fire: fire})
	return fire
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker needs a positive period")
	}
	timer := &fakeTimer{fire: make(chan time.Time, 1), period: d}

	c.mu.Lock()
	timer.due = c.now.Add(d)
	c.scheduleLocked(timer)
	c.mu.Unlock()

	return &Ticker{C: timer.fire, stopFunc: func() { c.remove(timer) }}
}

// scheduleLocked inserts timer in due order after any timers due at
// the same instant. Caller holds c.mu.
func (c *FakeClock) scheduleLocked(timer *fakeTimer) {
	index, _ := slices.BinarySearchFunc(c.timers, timer.due, func(t *fakeTimer, due time.Time) int {
		if t.due.After(due) {
			return 1
		}
		return -1
	})
	c.timers = slices.Insert(c.timers, index, timer)
	c.registered.Broadcast()
}

func (c *FakeClock) remove(timer *fakeTimer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = slices.DeleteFunc(c.timers, func(t *fakeTimer) bool { return t == timer })
}

// Advance moves time forward by d and fires, in due order, every timer
// due by the new time. A ticker fires once per elapsed period; a tick
// that finds the channel full is dropped, as with time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.timers) == 0 || c.timers[0].due.After(target) {
			c.mu.Unlock()
			return
		}
		timer := c.timers[0]
		c.timers = c.timers[1:]
		if timer.period > 0 {
			timer.due = timer.due.Add(timer.period)
			c.scheduleLocked(timer)
		}
		c.mu.Unlock()

		select {
		case timer.fire <- target:
		default:
		}
	}
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Call it before Advance when the code under test registers its timer
// from another goroutine.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.registered.Wait()
	}
}

// PendingCount returns the number of timers and running tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
