// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/checkin/lib/clock"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/realtime"
)

// Defaults applied by [NewSyncer].
const (
	DefaultRefreshInterval    = 60 * time.Second
	DefaultMinRefreshInterval = 5 * time.Second
)

// Fetcher reads authoritative ticket state from the REST API.
type Fetcher interface {
	MyTickets(ctx context.Context) ([]checkin.Ticket, error)
	EventSeats(ctx context.Context, eventID string) ([]checkin.Seat, error)
}

// SyncerConfig configures a [Syncer].
type SyncerConfig struct {
	Store   *Store
	Bus     *realtime.Bus
	Fetcher Fetcher

	// SeatEvents returns the events whose seat maps are refreshed
	// alongside the ticket list. Typically the joined rooms. Nil
	// refreshes tickets only.
	SeatEvents func() []string

	Clock  clock.Clock
	Logger *slog.Logger

	// RefreshInterval is the period of background refreshes.
	RefreshInterval time.Duration

	// MinRefreshInterval limits on-demand refreshes requested through
	// RequestRefresh.
	MinRefreshInterval time.Duration
}

// Syncer feeds a Store from its two upstream sources: the realtime
// bus, and REST refreshes on a timer or on demand. A refresh is what
// repairs notifications lost while offline.
type Syncer struct {
	store      *Store
	bus        *realtime.Bus
	fetcher    Fetcher
	seatEvents func() []string
	clock      clock.Clock
	logger     *slog.Logger
	interval   time.Duration
	limiter    *rate.Limiter
	requests   chan struct{}

	seatMu      sync.Mutex
	seatPending map[string]struct{}
	seatSignal  chan struct{}
}

// NewSyncer validates config and returns a stopped syncer.
func NewSyncer(config SyncerConfig) (*Syncer, error) {
	if config.Store == nil {
		return nil, errors.New("ticketsync: SyncerConfig.Store is required")
	}
	if config.Fetcher == nil {
		return nil, errors.New("ticketsync: SyncerConfig.Fetcher is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if config.MinRefreshInterval <= 0 {
		config.MinRefreshInterval = DefaultMinRefreshInterval
	}
	if config.MinRefreshInterval > config.RefreshInterval {
		return nil, fmt.Errorf("ticketsync: min refresh interval %s exceeds refresh interval %s",
			config.MinRefreshInterval, config.RefreshInterval)
	}

	return &Syncer{
		store:      config.Store,
		bus:        config.Bus,
		fetcher:    config.Fetcher,
		seatEvents: config.SeatEvents,
		clock:      config.Clock,
		logger:     config.Logger,
		interval:   config.RefreshInterval,
		limiter:    rate.NewLimiter(rate.Every(config.MinRefreshInterval), 1),
		requests:   make(chan struct{}, 1),

		seatPending: make(map[string]struct{}),
		seatSignal:  make(chan struct{}, 1),
	}, nil
}

// Run subscribes the Store to the bus, performs an initial refresh,
// and then refreshes on every tick and accepted RequestRefresh until
// ctx is cancelled. Refresh failures are logged; the Store keeps its
// last known state.
func (s *Syncer) Run(ctx context.Context) error {
	if s.bus != nil {
		subscription := s.bus.Subscribe("ticket-store", s.store)
		defer subscription.Unsubscribe()
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	// The initial refresh covers every seat event, including any
	// queued before Run started.
	s.takePendingSeats()
	s.refreshLogged(ctx, "initial")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refreshLogged(ctx, "periodic")
		case <-s.requests:
			s.refreshLogged(ctx, "requested")
		case <-s.seatSignal:
			for _, eventID := range s.takePendingSeats() {
				if err := s.RefreshSeats(ctx, eventID); err != nil && ctx.Err() == nil {
					s.logger.Warn("seat map load failed", "event_id", eventID, "error", err)
				}
			}
		}
	}
}

func (s *Syncer) refreshLogged(ctx context.Context, reason string) {
	if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("ticket refresh failed", "reason", reason, "error", err)
	}
}

// Refresh fetches the ticket list and the seat maps of SeatEvents and
// merges them into the Store. A failure on one event's seats does not
// prevent the others from being refreshed.
func (s *Syncer) Refresh(ctx context.Context) error {
	var errs []error

	tickets, err := s.fetcher.MyTickets(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("fetching tickets: %w", err))
	} else {
		s.store.Replace(tickets)
	}

	if s.seatEvents != nil {
		for _, eventID := range s.seatEvents() {
			if err := s.RefreshSeats(ctx, eventID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RefreshSeats fetches one event's seat map and merges it into the
// Store.
func (s *Syncer) RefreshSeats(ctx context.Context, eventID string) error {
	seats, err := s.fetcher.EventSeats(ctx, eventID)
	if err != nil {
		return fmt.Errorf("fetching seats for %s: %w", eventID, err)
	}
	s.store.ReplaceSeats(eventID, seats)
	return nil
}

// LoadSeats asks the running syncer to fetch one event's seat map
// without waiting for the next refresh. It bypasses the RequestRefresh
// rate limit: a newly joined event has no seats to mark until its map
// is loaded. Loads for the same event are coalesced until served.
func (s *Syncer) LoadSeats(eventID string) {
	s.seatMu.Lock()
	s.seatPending[eventID] = struct{}{}
	s.seatMu.Unlock()

	select {
	case s.seatSignal <- struct{}{}:
	default:
	}
}

func (s *Syncer) takePendingSeats() []string {
	s.seatMu.Lock()
	defer s.seatMu.Unlock()
	pending := slices.Sorted(maps.Keys(s.seatPending))
	clear(s.seatPending)
	return pending
}

// RequestRefresh asks the running syncer for an immediate refresh, as
// a screen regaining focus would. Requests closer together than the
// minimum refresh interval are coalesced. Reports whether the request
// was accepted.
func (s *Syncer) RequestRefresh() bool {
	if !s.limiter.AllowN(s.clock.Now(), 1) {
		return false
	}
	select {
	case s.requests <- struct{}{}:
	default:
	}
	return true
}
