// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for backoff, attempt timestamps, and
// refresh scheduling.
type Clock interface {
	Now() time.Time

	// After delivers the time once d has passed. A non-positive d
	// delivers at once.
	After(d time.Duration) <-chan time.Time

	// NewTicker delivers the time every d. d must be positive.
	NewTicker(d time.Duration) *Ticker
}

// Ticker is a periodic tick source from a Clock. C holds at most one
// pending tick.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop ends the ticks. C is left open.
func (t *Ticker) Stop() { t.stopFunc() }
