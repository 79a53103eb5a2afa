// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Subscriber receives checkin notifications from a [Bus]. Notify runs
// on the publishing goroutine and should return quickly.
type Subscriber interface {
	Notify(checkin.Notification) error
}

// SubscriberFunc adapts a function to [Subscriber].
type SubscriberFunc func(checkin.Notification) error

func (f SubscriberFunc) Notify(notification checkin.Notification) error {
	return f(notification)
}

// Bus delivers each published notification to every registered
// subscriber. Registration and removal are independent per subscriber;
// a failing subscriber never prevents delivery to the others.
type Bus struct {
	logger *slog.Logger

	mu sync.Mutex
	// subscriptions is replaced, never mutated in place, so Publish can
	// iterate a snapshot without holding the lock.
	subscriptions []*Subscription
	nextID        uint64
}

// Subscription is a registration on a [Bus].
type Subscription struct {
	id         uint64
	name       string
	subscriber Subscriber
	bus        *Bus
	active     atomic.Bool
	once       sync.Once
}

// NewBus returns a bus with no subscribers.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{logger: logger}
}

// Subscribe registers subscriber. The name appears in log lines about
// this subscriber's failures.
func (b *Bus) Subscribe(name string, subscriber Subscriber) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	subscription := &Subscription{
		id:         b.nextID,
		name:       name,
		subscriber: subscriber,
		bus:        b,
	}
	subscription.active.Store(true)

	next := make([]*Subscription, len(b.subscriptions), len(b.subscriptions)+1)
	copy(next, b.subscriptions)
	b.subscriptions = append(next, subscription)
	return subscription
}

// Unsubscribe removes the subscription. Notifications already being
// delivered may still reach it; later ones will not. Safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)
		s.bus.remove(s.id)
	})
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]*Subscription, 0, len(b.subscriptions))
	for _, subscription := range b.subscriptions {
		if subscription.id != id {
			next = append(next, subscription)
		}
	}
	b.subscriptions = next
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// Publish delivers notification to every subscriber registered at the
// time of the call, in registration order. Errors and panics from a
// subscriber are logged. Returns the number of subscribers invoked.
func (b *Bus) Publish(notification checkin.Notification) int {
	b.mu.Lock()
	snapshot := b.subscriptions
	b.mu.Unlock()

	delivered := 0
	for _, subscription := range snapshot {
		if !subscription.active.Load() {
			continue
		}
		delivered++
		if err := b.deliver(subscription, notification); err != nil {
			b.logger.Warn("notification subscriber failed",
				"subscriber", subscription.name,
				"ticket_id", notification.TicketID,
				"event_id", notification.EventID,
				"error", err,
			)
		}
	}
	return delivered
}

func (b *Bus) deliver(subscription *Subscription, notification checkin.Notification) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return subscription.subscriber.Notify(notification)
}
