// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketsync keeps locally held tickets and seats consistent
// with the server while updates arrive from three independent sources:
// realtime checkin notifications, the device's own check-in responses,
// and periodic REST refreshes.
//
// The reconciliation rules are pure functions ([Apply], [ApplySeat],
// [Merge], [MergeSeat]). They are keyed by ticket id and monotonic: a
// ticket in a terminal status (Used, Cancelled, Expired) is never
// changed by a notification, and a refresh never moves a terminal
// ticket back to Valid. This makes duplicate, replayed, and
// out-of-order updates safe, and lets a notification lost during a
// reconnect be picked up by the next refresh.
//
// [Store] holds the collections and publishes a change feed.
// [Counter] tallies admitted tickets per event. [Syncer] wires the
// Store to the realtime bus and runs refreshes.
package ticketsync
