// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime keeps a device informed, without polling, that a
// ticket it cares about has been checked in, even when the check-in
// happened on a different device.
//
// Three cooperating types make this work:
//
//   - [Manager] owns the single persistent connection to the realtime
//     service. It dials through a [Dialer], reconnects with
//     exponential backoff on a [clock.Clock], and gives up after a
//     bounded number of consecutive failed dials, staying disconnected
//     until the caller connects again. Connection state is observable
//     through [Manager.WatchState].
//
//   - [Registry] is the set of event rooms the device has joined. It
//     is the only record of membership: the transport never tracks
//     rooms itself. Joining twice is a no-op; joining while offline
//     queues the room. On every (re)connection the Manager attaches the
//     new connection to the Registry, which re-announces every room
//     (see [ReplayAnnouncements]) before the Manager reports
//     [StateConnected].
//
//   - [Bus] fans every inbound checkin notification out to all local
//     subscribers (ticket list, QR detail view, admitted counter). A
//     subscriber that returns an error or panics is logged and
//     skipped; the rest still receive the notification.
//
// Notifications for rooms that are no longer joined are dropped before
// they reach the Bus. Message order holds within one connection only;
// anything in flight during a reconnect may be lost, which the ticket
// reconciler tolerates (see lib/ticketsync).
//
// The wire is a sequence of envelopes {event, data}. [JSONCodec] sends
// them as WebSocket text frames and [CBORCodec] as binary frames.
// [WebSocketDialer] connects to the namespace-scoped endpoint of the
// production service; [MemoryHub] is an in-process server with room
// routing for tests.
//
// All exported methods are safe for concurrent use. Membership
// mutation and subscriber-set mutation are each serialized by their
// own mutex.
package realtime
