// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketsync

import (
	"time"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Apply merges a checkin notification into one ticket. The result is
// the unchanged ticket when the ids differ or the ticket is already in
// a terminal status; otherwise the ticket becomes Used at the
// notification's check-in time.
func Apply(notification checkin.Notification, ticket checkin.Ticket) checkin.Ticket {
	if notification.TicketID != ticket.ID {
		return ticket
	}
	if ticket.Status.IsTerminal() {
		return ticket
	}
	checkinTime := notification.CheckinTime
	ticket.Status = checkin.StatusUsed
	ticket.CheckinTime = &checkinTime
	return ticket
}

// ApplySeat marks the seat bound to the notification's ticket as
// checked in. A seat already checked in is left alone.
func ApplySeat(notification checkin.Notification, seat checkin.Seat) checkin.Seat {
	if seat.TicketID == "" || seat.TicketID != notification.TicketID {
		return seat
	}
	if seat.CheckedIn {
		return seat
	}
	checkinTime := notification.CheckinTime
	seat.CheckedIn = true
	seat.CheckinTime = &checkinTime
	return seat
}

// Merge combines a locally held ticket with a freshly fetched copy of
// the same ticket. The fetched copy wins, except that a local terminal
// status is kept when the fetch reports Valid (a stale read racing a
// push), and a local check-in time is kept when the fetch omits it.
func Merge(local, fetched checkin.Ticket) checkin.Ticket {
	if local.ID != fetched.ID {
		return fetched
	}
	merged := fetched
	if local.Status.IsTerminal() && !fetched.Status.IsTerminal() {
		merged.Status = local.Status
		merged.CheckinTime = local.CheckinTime
		return merged
	}
	if merged.Status == checkin.StatusUsed && merged.CheckinTime == nil {
		merged.CheckinTime = local.CheckinTime
	}
	return merged
}

// MergeSeat combines a local seat with a fetched copy. A seat never
// goes from checked in back to not checked in.
func MergeSeat(local, fetched checkin.Seat) checkin.Seat {
	if local.ID != fetched.ID {
		return fetched
	}
	merged := fetched
	if local.CheckedIn && !fetched.CheckedIn && local.TicketID == fetched.TicketID {
		merged.CheckedIn = true
		merged.CheckinTime = local.CheckinTime
	}
	if merged.CheckedIn && merged.CheckinTime == nil {
		merged.CheckinTime = local.CheckinTime
	}
	return merged
}

// FromResult converts a successful check-in response into the
// notification the realtime service would push for it, so that a
// device's own check-in confirms its local state through the same
// [Apply] rule as a push from another device. Both sources may arrive
// in either order; the second is a no-op.
//
// Reports false when the response is not an admission (Fake,
// WrongEvent) or does not identify the ticket. at is used when the
// response carries no check-in time.
func FromResult(response checkin.CheckinResponse, at time.Time) (checkin.Notification, bool) {
	if response.Status != checkin.ResultValid && response.Status != checkin.ResultUsed {
		return checkin.Notification{}, false
	}
	info := response.TicketInfo
	if info == nil || info.TicketID == "" || info.EventID == "" {
		return checkin.Notification{}, false
	}
	checkinTime := at
	if info.CheckinTime != nil {
		checkinTime = *info.CheckinTime
	}
	return checkin.Notification{
		TicketID:    info.TicketID,
		EventID:     info.EventID,
		User:        info.Attendee,
		Status:      checkin.StatusUsed,
		CheckinTime: checkinTime,
	}, true
}
