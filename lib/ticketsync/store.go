// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketsync

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// WatcherChannelSize is the buffer of each change-feed channel. A
// watcher that falls further behind is marked for resync.
const WatcherChannelSize = 64

// Source identifies where a change came from.
type Source string

const (
	// SourcePush is a realtime checkin notification.
	SourcePush Source = "push"

	// SourceCheckin is this device's own check-in response.
	SourceCheckin Source = "checkin"

	// SourceRefresh is a REST fetch. A refresh Change with an empty
	// TicketID means the whole collection may have changed.
	SourceRefresh Source = "refresh"
)

// Change describes one update to the Store.
type Change struct {
	Source   Source
	TicketID string
	EventID  string
}

// Watcher receives Store changes. Read from C until Close.
type Watcher struct {
	// C carries changes. It is never closed.
	C <-chan Change

	// Resync is set when a change was dropped because C was full. The
	// owner should clear it and re-read the Store.
	Resync atomic.Bool

	channel chan Change
	store   *Store
	once    sync.Once
}

// Close stops delivery to the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.store.mu.Lock()
		delete(w.store.watchers, w)
		w.store.mu.Unlock()
	})
}

// Store is the device's in-memory ticket and seat collections. All
// writes go through the reconciliation rules, so the Store can be fed
// from any mix of sources without ordering guarantees.
//
// Store implements the realtime bus subscriber interface through
// Notify.
type Store struct {
	logger *slog.Logger

	mu       sync.RWMutex
	tickets  map[string]checkin.Ticket
	seats    map[string]checkin.Seat
	watchers map[*Watcher]struct{}
}

// NewStore returns an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		logger:   logger,
		tickets:  make(map[string]checkin.Ticket),
		seats:    make(map[string]checkin.Seat),
		watchers: make(map[*Watcher]struct{}),
	}
}

// Watch registers a change-feed watcher.
func (s *Store) Watch() *Watcher {
	channel := make(chan Change, WatcherChannelSize)
	watcher := &Watcher{C: channel, channel: channel, store: s}

	s.mu.Lock()
	s.watchers[watcher] = struct{}{}
	s.mu.Unlock()
	return watcher
}

// publishLocked sends change to every watcher without blocking.
// Caller holds s.mu.
func (s *Store) publishLocked(change Change) {
	for watcher := range s.watchers {
		select {
		case watcher.channel <- change:
		default:
			watcher.Resync.Store(true)
		}
	}
}

// Replace merges an authoritative ticket list into the store. Tickets
// absent from fetched are removed; tickets present are merged with
// [Merge].
func (s *Store) Replace(fetched []checkin.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]checkin.Ticket, len(fetched))
	for _, ticket := range fetched {
		if ticket.ID == "" {
			s.logger.Warn("ignoring fetched ticket without id", "event_id", ticket.EventID)
			continue
		}
		if local, ok := s.tickets[ticket.ID]; ok {
			ticket = Merge(local, ticket)
		}
		next[ticket.ID] = ticket
	}
	s.tickets = next
	s.publishLocked(Change{Source: SourceRefresh})
}

// Upsert merges a single fetched ticket (a detail view refresh).
func (s *Store) Upsert(fetched checkin.Ticket) {
	if fetched.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if local, ok := s.tickets[fetched.ID]; ok {
		fetched = Merge(local, fetched)
	}
	s.tickets[fetched.ID] = fetched
	s.publishLocked(Change{Source: SourceRefresh, TicketID: fetched.ID, EventID: fetched.EventID})
}

// ReplaceSeats merges the authoritative seat list of one event.
func (s *Store) ReplaceSeats(eventID string, fetched []checkin.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]checkin.Seat)
	for id, seat := range s.seats {
		if seat.EventID == eventID {
			previous[id] = seat
			delete(s.seats, id)
		}
	}
	for _, seat := range fetched {
		if seat.ID == "" {
			continue
		}
		if seat.EventID == "" {
			seat.EventID = eventID
		}
		if local, ok := previous[seat.ID]; ok {
			seat = MergeSeat(local, seat)
		}
		s.seats[seat.ID] = seat
	}
	s.publishLocked(Change{Source: SourceRefresh, EventID: eventID})
}

// Notify applies a realtime notification. It never fails; the error
// return satisfies the bus subscriber interface.
func (s *Store) Notify(notification checkin.Notification) error {
	s.apply(notification, SourcePush)
	return nil
}

// ApplyNotification applies a notification and reports whether any
// ticket or seat changed.
func (s *Store) ApplyNotification(notification checkin.Notification) bool {
	return s.apply(notification, SourcePush)
}

// ApplyResult applies this device's own check-in response. Reports
// whether any ticket or seat changed.
func (s *Store) ApplyResult(response checkin.CheckinResponse, at time.Time) bool {
	notification, ok := FromResult(response, at)
	if !ok {
		return false
	}
	return s.apply(notification, SourceCheckin)
}

func (s *Store) apply(notification checkin.Notification, source Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if ticket, ok := s.tickets[notification.TicketID]; ok {
		updated := Apply(notification, ticket)
		if updated.Status != ticket.Status {
			s.tickets[ticket.ID] = updated
			changed = true
		}
	}
	for id, seat := range s.seats {
		updated := ApplySeat(notification, seat)
		if updated.CheckedIn != seat.CheckedIn {
			s.seats[id] = updated
			changed = true
		}
	}

	if changed {
		s.logger.Debug("ticket checked in",
			"ticket_id", notification.TicketID,
			"event_id", notification.EventID,
			"source", string(source),
		)
		s.publishLocked(Change{Source: source, TicketID: notification.TicketID, EventID: notification.EventID})
	}
	return changed
}

// Get returns one ticket.
func (s *Store) Get(ticketID string) (checkin.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	return ticket, ok
}

// List returns every ticket, ordered by event then ticket id.
func (s *Store) List() []checkin.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]checkin.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		tickets = append(tickets, ticket)
	}
	slices.SortFunc(tickets, func(a, b checkin.Ticket) int {
		return cmp.Or(cmp.Compare(a.EventID, b.EventID), cmp.Compare(a.ID, b.ID))
	})
	return tickets
}

// EventIDs returns the distinct event ids of held tickets, sorted.
func (s *Store) EventIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []string
	for _, ticket := range s.tickets {
		events = append(events, ticket.EventID)
	}
	slices.Sort(events)
	return slices.Compact(events)
}

// Seats returns the seats of one event, ordered by label.
func (s *Store) Seats(eventID string) []checkin.Seat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var seats []checkin.Seat
	for _, seat := range s.seats {
		if seat.EventID == eventID {
			seats = append(seats, seat)
		}
	}
	slices.SortFunc(seats, func(a, b checkin.Seat) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.ID, b.ID))
	})
	return seats
}
