// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Announcer sends room-membership announcements over a live
// connection. Announce must not block.
type Announcer interface {
	Announce(Announcement) error
}

// Registry is the authoritative set of event rooms this device has
// joined. Membership survives disconnects: when a connection is
// attached, every joined room is announced again.
//
// Membership changes and announcements happen under one mutex, so an
// announcement sequence for one room (join, leave, join) reaches the
// connection in the order the calls were made.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	rooms     map[string]struct{}
	announcer Announcer
}

// NewRegistry returns an empty registry with no connection attached.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		logger: logger,
		rooms:  make(map[string]struct{}),
	}
}

func validateEventID(eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("realtime: event ID is empty")
	}
	return nil
}

// Join records membership of the event's room and, if a connection is
// attached, announces it. Joining a room already joined does nothing.
// A failed announcement is logged but does not undo membership: the
// room is announced again on the next reconnect.
func (r *Registry) Join(eventID string) error {
	if err := validateEventID(eventID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, joined := r.rooms[eventID]; joined {
		return nil
	}
	r.rooms[eventID] = struct{}{}
	r.announceLocked(Announcement{Event: checkin.EventJoin, EventID: eventID})
	return nil
}

// Leave removes membership of the event's room and, if a connection is
// attached, announces the departure. Leaving a room not joined does
// nothing.
func (r *Registry) Leave(eventID string) error {
	if err := validateEventID(eventID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, joined := r.rooms[eventID]; !joined {
		return nil
	}
	delete(r.rooms, eventID)
	r.announceLocked(Announcement{Event: checkin.EventLeave, EventID: eventID})
	return nil
}

// Has reports whether the device is currently a member of the event's
// room.
func (r *Registry) Has(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, joined := r.rooms[eventID]
	return joined
}

// CurrentRooms returns the joined event IDs, sorted.
func (r *Registry) CurrentRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomsLocked()
}

// Len returns the number of joined rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) roomsLocked() []string {
	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)
	return rooms
}

func (r *Registry) announceLocked(announcement Announcement) {
	if r.announcer == nil {
		r.logger.Debug("room change queued until connected",
			"event", announcement.Event,
			"event_id", announcement.EventID,
		)
		return
	}
	if err := r.announcer.Announce(announcement); err != nil {
		r.logger.Warn("room announcement failed, will replay on reconnect",
			"event", announcement.Event,
			"event_id", announcement.EventID,
			"error", err,
		)
	}
}

// replayer is an Announcer that can wait for outbound space. Replay
// uses it when available so that no room is skipped on a fresh
// connection.
type replayer interface {
	Replay(Announcement) error
}

// attach makes announcer the live connection and replays every joined
// room through it. Returns the number of join announcements sent. If
// any replay announcement fails, the announcer is detached and the
// error returned: the connection does not carry the full membership
// and must not be reported ready.
func (r *Registry) attach(announcer Announcer) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	send := announcer.Announce
	if replay, ok := announcer.(replayer); ok {
		send = replay.Replay
	}

	announcements := ReplayAnnouncements(r.roomsLocked())
	for _, announcement := range announcements {
		if err := send(announcement); err != nil {
			return 0, fmt.Errorf("replaying %s %s: %w", announcement.Event, announcement.EventID, err)
		}
	}
	r.announcer = announcer
	return len(announcements), nil
}

// detach forgets announcer if it is still the attached connection.
func (r *Registry) detach(announcer Announcer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.announcer == announcer {
		r.announcer = nil
	}
}

// clear drops all membership without announcing anything. Used on an
// explicit disconnect.
func (r *Registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.rooms)
	r.announcer = nil
}
