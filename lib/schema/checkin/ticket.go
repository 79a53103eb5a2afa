// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkin

import (
	"time"

	"github.com/bureau-foundation/checkin/lib/credential"
)

// TicketStatus is the server-authoritative lifecycle state of a
// ticket. The client only ever reflects the last status the server
// reported, either through a REST fetch or a push notification.
type TicketStatus string

const (
	// StatusValid is a registered ticket that has not been used.
	StatusValid TicketStatus = "Valid"

	// StatusUsed is a ticket that has been checked in. Set exactly
	// once, together with the check-in time.
	StatusUsed TicketStatus = "Used"

	// StatusCancelled is a ticket its owner gave up.
	StatusCancelled TicketStatus = "Cancelled"

	// StatusExpired is a ticket whose event has passed.
	StatusExpired TicketStatus = "Expired"
)

// IsTerminal reports whether no further transition can follow. Only
// Valid is non-terminal.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case StatusUsed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsKnown reports whether s is one of the four defined statuses.
func (s TicketStatus) IsKnown() bool {
	return s == StatusValid || s.IsTerminal()
}

// Ticket is one ticket instance as held in local memory.
type Ticket struct {
	ID          string                `json:"id"`
	Credential  credential.Credential `json:"qrCode"`
	Status      TicketStatus          `json:"status"`
	EventID     string                `json:"eventId"`
	Owner       UserRef               `json:"user"`
	SeatID      string                `json:"seatId,omitempty"`
	CheckinTime *time.Time            `json:"checkinTime,omitempty"`
}

// Seat is a reserved seat. A seat is bound to at most one ticket and
// is marked checked in when that ticket is used.
type Seat struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	EventID     string     `json:"eventId"`
	TicketID    string     `json:"ticketId,omitempty"`
	CheckedIn   bool       `json:"checkedIn"`
	CheckinTime *time.Time `json:"checkinTime,omitempty"`
}
