// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package admission runs staff check-in attempts against the event API
// and classifies their outcome.
//
// An attempt enters through one of two lanes: [KindScan] takes the
// payload decoded from a QR symbol, [KindManual] takes a student id or
// email that the server resolves to a ticket. Each lane holds at most
// one attempt. While it is pending, a new attempt on the same lane is
// refused with [ErrAttemptInFlight]; once it is terminal, further
// attempts are refused with [ErrResultNotConsumed] until the operator
// acknowledges the result with [Executor.Reset]. This is what keeps a
// QR code that stays in front of the camera from being submitted over
// and over.
//
// Terminal states:
//
//	valid        admitted
//	used         already admitted earlier (informational, not a failure)
//	fake         credential resolves to no ticket
//	wrong_event  ticket belongs to another event
//	failed       transport error, timeout, or unclassified server error
//
// Every attempt runs under a timeout and always ends terminal. A
// valid or used result that identifies the ticket is forwarded to the
// configured [Confirmer], so the device's own check-ins update local
// ticket state without waiting for the realtime push.
package admission
