// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/checkin/lib/netutil"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// session is the device side of one established connection. Outbound
// frames go through a bounded queue drained by a single writer
// goroutine, so Announce never blocks the caller (which holds the
// Registry lock). A frame that does not fit closes the session.
type session struct {
	conn     Conn
	encoding Codec
	logger   *slog.Logger

	outbound chan []byte
	done     chan struct{}

	closeOnce sync.Once
	writerWG  sync.WaitGroup
}

func newSession(conn Conn, encoding Codec, queueSize int, logger *slog.Logger) *session {
	s := &session{
		conn:     conn,
		encoding: encoding,
		logger:   logger,
		outbound: make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
	s.writerWG.Add(1)
	go s.writeLoop()
	return s
}

// Announce encodes a room announcement and queues it for the writer.
func (s *session) Announce(announcement Announcement) error {
	frame, err := s.encoding.Encode(announcement.Event, checkin.RoomRequest{EventID: announcement.EventID})
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return ErrNotConnected
	default:
	}

	select {
	case s.outbound <- frame:
		return nil
	default:
	}

	// The server now has a membership view that differs from the
	// registry's. Drop the connection so the reconnect replays it.
	s.logger.Warn("realtime outbound queue full, closing connection",
		"event", announcement.Event,
		"event_id", announcement.EventID,
	)
	s.close()
	return ErrOutboundFull
}

// Replay queues a room announcement, waiting for queue space. Used
// while replaying membership onto a connection that is not yet ready;
// a stalled write ends in the writer's timeout, which closes the
// session and unblocks the wait.
func (s *session) Replay(announcement Announcement) error {
	frame, err := s.encoding.Encode(announcement.Event, checkin.RoomRequest{EventID: announcement.EventID})
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return ErrNotConnected
	case s.outbound <- frame:
		return nil
	}
}

func (s *session) writeLoop() {
	defer s.writerWG.Done()
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.outbound:
			ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
			err := s.conn.WriteMessage(ctx, frame)
			cancel()
			if err != nil {
				if !netutil.IsExpectedCloseError(err) {
					s.logger.Warn("realtime write failed, closing connection", "error", err)
				}
				s.close()
				return
			}
		}
	}
}

// close tears the connection down. A pending ReadMessage on the
// connection returns an error afterwards.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// wait blocks until the writer goroutine has exited.
func (s *session) wait() {
	s.writerWG.Wait()
}
