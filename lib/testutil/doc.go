// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the check-in
// packages.
//
// [RequireReceive], [RequireNoReceive], and [RequireClosed] wrap the
// select-with-timeout pattern so that individual tests never call
// time.After directly. They are the only place in the test suite where
// real wall-clock timeouts are used; everything else runs on
// clock.Fake.
//
// [UniqueID] generates monotonically increasing identifiers for event
// ids, ticket ids, and credentials that must not collide between
// subtests sharing one realtime.MemoryHub.
//
// All helpers call t.Fatalf on failure.
package testutil
