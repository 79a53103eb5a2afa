// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// realtime channel's binary frame mode.
//
// The realtime service speaks JSON text frames by default. When a
// deployment sets realtime.encoding to "cbor", the same envelopes are
// sent as CBOR binary frames instead. Both encodings use the same Go
// types: fxamacker/cbor reads `json` struct tags as a fallback when no
// `cbor` tag is present, so the wire types in lib/schema/checkin carry
// only `json` tags and serialize identically in either format.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same envelope always produces the same bytes.
package codec
