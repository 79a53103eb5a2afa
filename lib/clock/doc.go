// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the
// realtime connection manager (reconnect backoff), the check-in
// executor (attempt timestamps), and the ticket syncer (periodic
// refresh).
//
// Production code takes a [Clock] and is wired with [Real]. Tests wire
// [Fake], which stands still until Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := realtime.NewManager(realtime.ManagerConfig{Clock: c, ...})
//	c.WaitForTimers(1)         // the manager is now waiting out its backoff
//	c.Advance(time.Second)     // fire it deterministically
//
// WaitForTimers removes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
