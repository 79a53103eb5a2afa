// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"time"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Kind is the entry point of an attempt. Each kind is an independent
// lane.
type Kind string

const (
	KindScan   Kind = "scan"
	KindManual Kind = "manual"
)

// State is the lifecycle state of an attempt.
type State string

const (
	// StateIdle is the neutral state of a lane with no attempt.
	StateIdle State = "idle"

	StatePending    State = "pending"
	StateValid      State = "valid"
	StateUsed       State = "used"
	StateFake       State = "fake"
	StateWrongEvent State = "wrong_event"
	StateFailed     State = "failed"
)

// Terminal reports whether the attempt has finished.
func (s State) Terminal() bool {
	switch s {
	case StateValid, StateUsed, StateFake, StateWrongEvent, StateFailed:
		return true
	}
	return false
}

// Success reports whether the ticket is admitted, now or earlier.
func (s State) Success() bool {
	return s == StateValid || s == StateUsed
}

// stateFromResult maps a server classification to a terminal state.
func stateFromResult(status checkin.ResultStatus) State {
	switch status {
	case checkin.ResultValid:
		return StateValid
	case checkin.ResultUsed:
		return StateUsed
	case checkin.ResultFake:
		return StateFake
	case checkin.ResultWrongEvent:
		return StateWrongEvent
	}
	return StateFailed
}

// Attempt is a snapshot of one check-in attempt.
type Attempt struct {
	// ID is sent with the request for server-side correlation.
	ID string

	Kind    Kind
	EventID string

	// Fingerprint identifies the input (credential or search query)
	// without revealing it.
	Fingerprint string

	State   State
	Message string

	// Ticket is the ticket the server resolved the input to, when it
	// said.
	Ticket *checkin.TicketInfo

	// Err is the cause of StateFailed.
	Err error

	Started  time.Time
	Finished time.Time
}

// Duration is the time the attempt took, or zero while pending.
func (a Attempt) Duration() time.Duration {
	if a.Finished.IsZero() {
		return 0
	}
	return a.Finished.Sub(a.Started)
}
