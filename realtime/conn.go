// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when an operation needs a live
	// connection and there is none.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrOutboundFull is returned when a connection's outbound queue
	// cannot take another frame. The frame is dropped and the
	// connection closed; room membership is replayed on the reconnect.
	ErrOutboundFull = errors.New("realtime: outbound queue full")
)

// Conn is one established bidirectional message channel. ReadMessage
// and WriteMessage may be called concurrently with each other, but
// each from a single goroutine. Close unblocks a pending ReadMessage.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, frame []byte) error
	Close() error
}

// Dialer establishes new connections to the realtime service.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
