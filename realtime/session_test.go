// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/lib/testutil"
)

// stalledConn holds every write until release is closed. Each write
// attempt is signalled on writing.
type stalledConn struct {
	release chan struct{}
	writing chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

func newStalledConn() *stalledConn {
	return &stalledConn{
		release: make(chan struct{}),
		writing: make(chan struct{}, 16),
		closed:  make(chan struct{}),
	}
}

func (c *stalledConn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *stalledConn) WriteMessage(ctx context.Context, frame []byte) error {
	select {
	case c.writing <- struct{}{}:
	default:
	}
	select {
	case <-c.release:
		return nil
	case <-c.closed:
		return fmt.Errorf("stalled conn write: %w", net.ErrClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *stalledConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func TestSessionOverflowClosesConnection(t *testing.T) {
	conn := newStalledConn()
	s := newSession(conn, JSONCodec{}, 1, slog.New(slog.DiscardHandler))
	defer func() {
		s.close()
		s.wait()
	}()

	join := func(eventID string) Announcement {
		return Announcement{Event: checkin.EventJoin, EventID: eventID}
	}

	if err := s.Announce(join("event-1")); err != nil {
		t.Fatalf("first Announce: %v", err)
	}
	testutil.RequireReceive(t, conn.writing, testTimeout, "writer picking up the first frame")
	if err := s.Announce(join("event-2")); err != nil {
		t.Fatalf("second Announce: %v", err)
	}

	if err := s.Announce(join("event-3")); !errors.Is(err, ErrOutboundFull) {
		t.Fatalf("third Announce = %v, want ErrOutboundFull", err)
	}
	testutil.RequireClosed(t, conn.closed, testTimeout, "connection still open after a dropped announcement")
	if err := s.Announce(join("event-4")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Announce after overflow = %v, want ErrNotConnected", err)
	}
}

func TestSessionReplayWaitsForSpace(t *testing.T) {
	conn := newStalledConn()
	s := newSession(conn, JSONCodec{}, 1, slog.New(slog.DiscardHandler))
	defer func() {
		s.close()
		s.wait()
	}()

	replayed := make(chan error, 1)
	go func() {
		for _, eventID := range []string{"event-1", "event-2", "event-3"} {
			if err := s.Replay(Announcement{Event: checkin.EventJoin, EventID: eventID}); err != nil {
				replayed <- err
				return
			}
		}
		replayed <- nil
	}()

	testutil.RequireReceive(t, conn.writing, testTimeout, "first write")
	testutil.RequireNoReceive(t, replayed, 50*time.Millisecond, "replay finished with the writer stalled")

	close(conn.release)
	if err := testutil.RequireReceive(t, replayed, testTimeout, "replay after release"); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	select {
	case <-conn.closed:
		t.Error("Replay closed the connection")
	default:
	}
}
