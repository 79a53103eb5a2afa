// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventapi is the HTTP client for the parts of the university
// event REST API that check-in sync depends on: the two check-in
// endpoints, the attendee ticket list and detail, and an event's seat
// map.
//
// Check-in classifications (VALID, USED, FAKE, WRONG_EVENT) are
// returned as values even when the server pairs them with a non-2xx
// status. Everything else that is not a 2xx response becomes an
// [*APIError].
package eventapi
