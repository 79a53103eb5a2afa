// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkin

import (
	"errors"
	"fmt"
	"time"
)

// Realtime channel message names.
const (
	// EventJoin is sent client→server to enter an event room.
	EventJoin = "joinEvent"

	// EventLeave is sent client→server to leave an event room.
	EventLeave = "leaveEvent"

	// EventCheckin is sent server→client when a ticket in a joined
	// room transitions to Used.
	EventCheckin = "checkin"
)

// RoomRequest is the payload of joinEvent and leaveEvent.
type RoomRequest struct {
	EventID string `json:"eventId"`
}

// Notification is the payload of a checkin message: a ticket has been
// used, possibly by a different device. Notifications are transient;
// they are applied to in-memory tickets and dropped.
type Notification struct {
	TicketID    string       `json:"ticketId"`
	EventID     string       `json:"eventId"`
	User        UserRef      `json:"user"`
	Status      TicketStatus `json:"status"`
	CheckinTime time.Time    `json:"checkinTime"`
	HandledBy   UserRef      `json:"handledBy"`
}

// Validate rejects notifications that cannot be applied: a missing
// ticket or event id, or a status other than Used.
func (n Notification) Validate() error {
	var errs []error
	if n.TicketID == "" {
		errs = append(errs, errors.New("missing ticketId"))
	}
	if n.EventID == "" {
		errs = append(errs, errors.New("missing eventId"))
	}
	if n.Status != StatusUsed {
		errs = append(errs, fmt.Errorf("status %q, want %q", n.Status, StatusUsed))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid checkin notification: %w", err)
	}
	return nil
}
