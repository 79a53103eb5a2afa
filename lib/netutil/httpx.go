// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads for the event API
// client and the realtime handshake, and connection-teardown
// classification for the realtime channel.
//
// Response helpers cap every read at MaxResponseSize so that a
// misbehaving server cannot exhaust memory on a phone-class device.
package netutil

import "io"

// MaxResponseSize bounds JSON API response body reads: 8 MB. Ticket
// lists for a single attendee and check-in responses are a few
// kilobytes; the bound exists only to stop pathological responses.
const MaxResponseSize int64 = 8 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an error response body for diagnostics. Read errors
// are ignored; a partial body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
