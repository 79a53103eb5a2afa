// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketsync

import (
	"sync"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Counter tallies distinct admitted tickets per event. Duplicate
// notifications for the same ticket count once.
type Counter struct {
	mu       sync.Mutex
	admitted map[string]map[string]struct{}
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{admitted: make(map[string]map[string]struct{})}
}

// Notify records a notification. Satisfies the bus subscriber
// interface.
func (c *Counter) Notify(notification checkin.Notification) error {
	c.Record(notification)
	return nil
}

// Record counts the notification's ticket and reports whether it was
// new for its event.
func (c *Counter) Record(notification checkin.Notification) bool {
	if notification.Status != checkin.StatusUsed || notification.TicketID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tickets, ok := c.admitted[notification.EventID]
	if !ok {
		tickets = make(map[string]struct{})
		c.admitted[notification.EventID] = tickets
	}
	if _, seen := tickets[notification.TicketID]; seen {
		return false
	}
	tickets[notification.TicketID] = struct{}{}
	return true
}

// Count returns the number of admitted tickets for an event.
func (c *Counter) Count(eventID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.admitted[eventID])
}

// Snapshot returns the admitted count of every event seen.
func (c *Counter) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[string]int, len(c.admitted))
	for eventID, tickets := range c.admitted {
		counts[eventID] = len(tickets)
	}
	return counts
}
