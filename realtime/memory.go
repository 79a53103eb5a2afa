// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// memoryPipeBuffer is the per-direction frame buffer of an in-memory
// connection.
const memoryPipeBuffer = 64

// HubAnnouncement records a room announcement received by a
// [MemoryHub], tagged with the client that sent it.
type HubAnnouncement struct {
	Client int
	Announcement
}

// MemoryHub is an in-process realtime server. It implements [Dialer]:
// every Dial creates a new client connection. The hub routes
// notifications to clients by room membership the same way the
// production service does, which makes it suitable for multi-device
// tests and offline demos.
type MemoryHub struct {
	encoding Codec

	mu            sync.Mutex
	clients       map[int]*hubClient
	nextClient    int
	dials         int
	refuseErr     error
	announcements chan HubAnnouncement
}

type hubClient struct {
	id    int
	conn  *memoryConn
	rooms map[string]struct{}
}

// NewMemoryHub returns a hub that speaks the given encoding. A nil
// encoding selects [JSONCodec].
func NewMemoryHub(encoding Codec) *MemoryHub {
	if encoding == nil {
		encoding = JSONCodec{}
	}
	return &MemoryHub{
		encoding:      encoding,
		clients:       make(map[int]*hubClient),
		announcements: make(chan HubAnnouncement, 256),
	}
}

// Dial connects a new client.
func (h *MemoryHub) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.dials++
	if h.refuseErr != nil {
		err := h.refuseErr
		h.mu.Unlock()
		return nil, err
	}
	h.nextClient++
	clientSide, serverSide := newMemoryPipe()
	client := &hubClient{id: h.nextClient, conn: serverSide, rooms: make(map[string]struct{})}
	h.clients[client.id] = client
	h.mu.Unlock()

	go h.serve(client)
	return clientSide, nil
}

// Refuse makes subsequent dials fail with err. Pass nil to accept
// dials again.
func (h *MemoryHub) Refuse(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refuseErr = err
}

// Dials returns the number of Dial calls so far, refused ones
// included.
func (h *MemoryHub) Dials() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials
}

// Clients returns the number of connected clients.
func (h *MemoryHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Members returns the number of connected clients in the event's room.
func (h *MemoryHub) Members(eventID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, client := range h.clients {
		if _, joined := client.rooms[eventID]; joined {
			count++
		}
	}
	return count
}

// Announcements returns the stream of room announcements the hub has
// processed. Membership is updated before the announcement is
// published on this channel. If nobody reads it, announcements beyond
// the buffer are discarded.
func (h *MemoryHub) Announcements() <-chan HubAnnouncement {
	return h.announcements
}

// Publish sends a checkin notification to every client in the
// notification's room. Returns the number of clients it was sent to.
func (h *MemoryHub) Publish(notification checkin.Notification) (int, error) {
	return h.Broadcast(notification.EventID, checkin.EventCheckin, notification)
}

// Broadcast sends an arbitrary event to every client in a room.
func (h *MemoryHub) Broadcast(eventID, event string, data any) (int, error) {
	frame, err := h.encoding.Encode(event, data)
	if err != nil {
		return 0, err
	}
	return h.BroadcastFrame(eventID, frame), nil
}

// BroadcastFrame sends a pre-encoded frame to every client in a room.
// A client whose buffer is full is disconnected.
func (h *MemoryHub) BroadcastFrame(eventID string, frame []byte) int {
	h.mu.Lock()
	var targets []*hubClient
	for _, client := range h.clients {
		if _, joined := client.rooms[eventID]; joined {
			targets = append(targets, client)
		}
	}
	h.mu.Unlock()

	sent := 0
	for _, client := range targets {
		if client.conn.trySend(frame) {
			sent++
			continue
		}
		client.conn.Close()
	}
	return sent
}

// DropAll closes every client connection from the server side, as a
// network outage would.
func (h *MemoryHub) DropAll() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
	}
}

func (h *MemoryHub) serve(client *hubClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client.id)
		h.mu.Unlock()
		client.conn.Close()
	}()

	for {
		frame, err := client.conn.ReadMessage(context.Background())
		if err != nil {
			return
		}
		message, err := h.encoding.Decode(frame)
		if err != nil {
			continue
		}
		if message.Event != checkin.EventJoin && message.Event != checkin.EventLeave {
			continue
		}
		var request checkin.RoomRequest
		if err := message.Decode(&request); err != nil || request.EventID == "" {
			continue
		}

		h.mu.Lock()
		if message.Event == checkin.EventJoin {
			client.rooms[request.EventID] = struct{}{}
		} else {
			delete(client.rooms, request.EventID)
		}
		h.mu.Unlock()

		select {
		case h.announcements <- HubAnnouncement{
			Client:       client.id,
			Announcement: Announcement{Event: message.Event, EventID: request.EventID},
		}:
		default:
		}
	}
}

// memoryPipe is the shared close state of a pair of memoryConns.
type memoryPipe struct {
	closed    chan struct{}
	closeOnce sync.Once
}

func (p *memoryPipe) close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

type memoryConn struct {
	incoming <-chan []byte
	outgoing chan<- []byte
	pipe     *memoryPipe
}

func newMemoryPipe() (*memoryConn, *memoryConn) {
	forward := make(chan []byte, memoryPipeBuffer)
	backward := make(chan []byte, memoryPipeBuffer)
	pipe := &memoryPipe{closed: make(chan struct{})}
	return &memoryConn{incoming: backward, outgoing: forward, pipe: pipe},
		&memoryConn{incoming: forward, outgoing: backward, pipe: pipe}
}

func (c *memoryConn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.incoming:
		return frame, nil
	case <-c.pipe.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *memoryConn) WriteMessage(ctx context.Context, frame []byte) error {
	select {
	case <-c.pipe.closed:
		return fmt.Errorf("memory conn write: %w", net.ErrClosed)
	default:
	}
	select {
	case c.outgoing <- frame:
		return nil
	case <-c.pipe.closed:
		return fmt.Errorf("memory conn write: %w", net.ErrClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trySend queues a frame without blocking. Reports false if the pipe
// is closed or the buffer is full.
func (c *memoryConn) trySend(frame []byte) bool {
	select {
	case <-c.pipe.closed:
		return false
	default:
	}
	select {
	case c.outgoing <- frame:
		return true
	default:
		return false
	}
}

func (c *memoryConn) Close() error {
	c.pipe.close()
	return nil
}
