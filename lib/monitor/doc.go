// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor is the door-staff view of a running device: the
// realtime connection state, the joined event rooms with their
// admitted counts, the most recent check-ins, and the device's
// tickets. It has two front ends over the same [Event] feed: a
// bubbletea [Model] for interactive terminals and [Print] for plain
// line output (pipes, logs, dumb terminals).
//
// Data flow:
//
//	[Manager state] [Bus check-ins] [Store changes]
//	         \            |             /
//	          Attach (one Event channel)
//	               |              |
//	           [Model]         [Print]
//
// The Model never reads device components from inside View. Each
// Event triggers a re-read of the [Source] snapshot in Update, so the
// rendered state is always a consistent copy.
package monitor
