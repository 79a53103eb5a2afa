// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkin

import "time"

// ResultStatus is the server's classification of a check-in request.
// Every value is an expected outcome, not an error.
type ResultStatus string

const (
	// ResultValid: the ticket was admitted by this request.
	ResultValid ResultStatus = "VALID"

	// ResultUsed: the ticket had already been admitted earlier.
	ResultUsed ResultStatus = "USED"

	// ResultFake: the credential or query matched no ticket.
	ResultFake ResultStatus = "FAKE"

	// ResultWrongEvent: the ticket belongs to a different event.
	ResultWrongEvent ResultStatus = "WRONG_EVENT"
)

// IsKnown reports whether s is one of the four classifications.
func (s ResultStatus) IsKnown() bool {
	switch s {
	case ResultValid, ResultUsed, ResultFake, ResultWrongEvent:
		return true
	}
	return false
}

// CheckinRequest is the body of POST /events/{eventId}/check-in.
type CheckinRequest struct {
	QRCode string `json:"qrCode"`
}

// ManualCheckinRequest is the body of POST
// /events/{eventId}/manual-check-in. SearchQuery is a student id or an
// email address; the server resolves it to a ticket.
type ManualCheckinRequest struct {
	SearchQuery string `json:"searchQuery"`
}

// CheckinResponse is returned by both check-in endpoints.
type CheckinResponse struct {
	Success    bool         `json:"success"`
	Status     ResultStatus `json:"status"`
	Message    string       `json:"message"`
	TicketInfo *TicketInfo  `json:"ticketInfo,omitempty"`
}

// TicketInfo describes the ticket a check-in request resolved to.
type TicketInfo struct {
	TicketID    string     `json:"id"`
	EventID     string     `json:"eventId"`
	Attendee    UserRef    `json:"user"`
	SeatLabel   string     `json:"seat,omitempty"`
	CheckinTime *time.Time `json:"checkinTime,omitempty"`
}

// TicketListResponse is the body of GET /tickets/my-tickets.
type TicketListResponse struct {
	Tickets []Ticket `json:"tickets"`
}

// TicketResponse is the body of GET /tickets/{ticketId}.
type TicketResponse struct {
	Ticket Ticket `json:"ticket"`
}

// SeatListResponse is the body of GET /events/{eventId}/seats.
type SeatListResponse struct {
	Seats []Seat `json:"seats"`
}
