// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkin defines the check-in protocol types shared by the
// realtime channel, the event REST API client, and the local ticket
// collections: tickets and seats as the client holds them, push
// notifications, room announcements, and check-in request/response
// bodies.
//
// Every type carries `json` tags only. The realtime channel's CBOR
// mode reads the same tags (see lib/codec), so one set of types serves
// both encodings.
package checkin
