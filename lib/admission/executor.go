// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/checkin/lib/clock"
	"github.com/bureau-foundation/checkin/lib/credential"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// DefaultTimeout bounds an attempt when ExecutorConfig.Timeout is zero.
const DefaultTimeout = 15 * time.Second

var (
	// ErrAttemptInFlight is returned when the lane's previous attempt
	// is still pending.
	ErrAttemptInFlight = errors.New("admission: a check-in attempt is already in flight")

	// ErrResultNotConsumed is returned when the lane's previous
	// attempt is terminal but has not been Reset.
	ErrResultNotConsumed = errors.New("admission: previous check-in result has not been acknowledged")
)

// API is the server side of a check-in.
type API interface {
	CheckIn(ctx context.Context, eventID string, qrCode credential.Credential, requestID string) (checkin.CheckinResponse, error)
	ManualCheckIn(ctx context.Context, eventID, searchQuery, requestID string) (checkin.CheckinResponse, error)
}

// Confirmer receives admitted results.
type Confirmer interface {
	ApplyResult(response checkin.CheckinResponse, at time.Time) bool
}

// ConfirmerFunc adapts a function to [Confirmer].
type ConfirmerFunc func(response checkin.CheckinResponse, at time.Time) bool

func (f ConfirmerFunc) ApplyResult(response checkin.CheckinResponse, at time.Time) bool {
	return f(response, at)
}

// ExecutorConfig configures an [Executor].
type ExecutorConfig struct {
	// API performs the requests. Required.
	API API

	// Confirmer, if set, receives every valid or used response.
	Confirmer Confirmer

	Clock  clock.Clock
	Logger *slog.Logger

	// Timeout bounds each attempt's request.
	Timeout time.Duration

	// NewID generates attempt ids. Defaults to random UUIDs.
	NewID func() string
}

// Executor runs check-in attempts, one per lane at a time.
type Executor struct {
	api       API
	confirmer Confirmer
	clock     clock.Clock
	logger    *slog.Logger
	timeout   time.Duration
	newID     func() string

	mu    sync.Mutex
	lanes map[Kind]*Attempt
}

// NewExecutor validates config and returns an executor with both lanes
// idle.
func NewExecutor(config ExecutorConfig) (*Executor, error) {
	if config.API == nil {
		return nil, errors.New("admission: ExecutorConfig.API is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	return &Executor{
		api:       config.API,
		confirmer: config.Confirmer,
		clock:     config.Clock,
		logger:    config.Logger,
		timeout:   config.Timeout,
		newID:     config.NewID,
		lanes:     make(map[Kind]*Attempt),
	}, nil
}

// Scan checks in the credential decoded from a QR symbol. A payload
// that does not parse as a credential is rejected before any request
// is made and leaves the lane untouched.
//
// The returned error is non-nil only when no attempt was started.
// Server and transport failures produce an attempt in StateFailed.
func (e *Executor) Scan(ctx context.Context, eventID, payload string) (Attempt, error) {
	qrCode, err := credential.Parse(payload)
	if err != nil {
		return Attempt{}, fmt.Errorf("admission: scanned payload: %w", err)
	}
	return e.run(ctx, KindScan, eventID, qrCode.Fingerprint(), func(ctx context.Context, requestID string) (checkin.CheckinResponse, error) {
		return e.api.CheckIn(ctx, eventID, qrCode, requestID)
	})
}

// Manual checks in the ticket the server finds for a student id or
// email address.
func (e *Executor) Manual(ctx context.Context, eventID, query string) (Attempt, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Attempt{}, errors.New("admission: search query is empty")
	}
	return e.run(ctx, KindManual, eventID, queryFingerprint(query), func(ctx context.Context, requestID string) (checkin.CheckinResponse, error) {
		return e.api.ManualCheckIn(ctx, eventID, query, requestID)
	})
}

// Current returns the lane's attempt, or an idle attempt if the lane
// is empty.
func (e *Executor) Current(kind Kind) Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	if attempt := e.lanes[kind]; attempt != nil {
		return *attempt
	}
	return Attempt{Kind: kind, State: StateIdle}
}

// Reset acknowledges the lane's terminal result and returns it to
// idle. Resetting an idle lane does nothing; resetting a pending lane
// returns ErrAttemptInFlight.
func (e *Executor) Reset(kind Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	attempt := e.lanes[kind]
	if attempt == nil {
		return nil
	}
	if attempt.State == StatePending {
		return ErrAttemptInFlight
	}
	delete(e.lanes, kind)
	return nil
}

type requestFunc func(ctx context.Context, requestID string) (checkin.CheckinResponse, error)

func (e *Executor) run(ctx context.Context, kind Kind, eventID, fingerprint string, request requestFunc) (Attempt, error) {
	if strings.TrimSpace(eventID) == "" {
		return Attempt{}, errors.New("admission: event ID is empty")
	}

	attempt, err := e.begin(kind, eventID, fingerprint)
	if err != nil {
		return Attempt{}, err
	}
	logger := e.logger.With(
		"attempt_id", attempt.ID,
		"kind", string(kind),
		"event_id", eventID,
		"fingerprint", fingerprint,
	)
	logger.Debug("check-in attempt started")

	requestCtx, cancel := context.WithTimeout(ctx, e.timeout)
	response, requestErr := request(requestCtx, attempt.ID)
	cancel()

	finished := e.finish(kind, response, requestErr)

	if requestErr != nil {
		logger.Warn("check-in attempt failed", "error", requestErr, "duration", finished.Duration())
	} else {
		logger.Info("check-in attempt finished", "state", string(finished.State), "duration", finished.Duration())
	}

	if finished.State.Success() && e.confirmer != nil {
		e.confirmer.ApplyResult(response, finished.Finished)
	}
	return finished, nil
}

func (e *Executor) begin(kind Kind, eventID, fingerprint string) (Attempt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if current := e.lanes[kind]; current != nil {
		if current.State == StatePending {
			return Attempt{}, ErrAttemptInFlight
		}
		return Attempt{}, ErrResultNotConsumed
	}
	attempt := &Attempt{
		ID:          e.newID(),
		Kind:        kind,
		EventID:     eventID,
		Fingerprint: fingerprint,
		State:       StatePending,
		Started:     e.clock.Now(),
	}
	e.lanes[kind] = attempt
	return *attempt, nil
}

func (e *Executor) finish(kind Kind, response checkin.CheckinResponse, requestErr error) Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()

	attempt := e.lanes[kind]
	attempt.Finished = e.clock.Now()
	if requestErr != nil {
		attempt.State = StateFailed
		attempt.Err = requestErr
		attempt.Message = "Check-in request failed; try again."
		return *attempt
	}

	attempt.State = stateFromResult(response.Status)
	attempt.Message = response.Message
	attempt.Ticket = response.TicketInfo
	if attempt.State == StateFailed {
		attempt.Err = fmt.Errorf("admission: unrecognized check-in status %q", response.Status)
	}
	if attempt.Message == "" {
		attempt.Message = defaultMessage(attempt.State)
	}
	return *attempt
}

func defaultMessage(state State) string {
	switch state {
	case StateValid:
		return "Checked in."
	case StateUsed:
		return "Ticket was already checked in."
	case StateFake:
		return "No ticket matches this code."
	case StateWrongEvent:
		return "Ticket is for a different event."
	}
	return "Check-in request failed; try again."
}

func queryFingerprint(query string) string {
	sum := blake3.Sum256([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:8])
}
