// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/checkin/lib/clock"
	"github.com/bureau-foundation/checkin/lib/netutil"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Defaults applied by [NewManager] for zero-valued config fields.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 5 * time.Second
	DefaultMaxAttempts    = 5
	DefaultOutboundQueue  = 64
)

// State is the connection lifecycle state of a [Manager].
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ManagerConfig configures a [Manager].
type ManagerConfig struct {
	// Dialer establishes connections. Required.
	Dialer Dialer

	// Codec encodes and decodes frames. Defaults to [JSONCodec].
	Codec Codec

	// Registry holds room membership. Required.
	Registry *Registry

	// Bus receives inbound checkin notifications. Required.
	Bus *Bus

	// Clock drives reconnect backoff and stamps notifications that
	// arrive without a check-in time. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	// InitialBackoff is the wait after the first failure. Doubles on
	// each consecutive failure up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MaxAttempts is the number of consecutive failed dials after
	// which the manager stops and stays disconnected.
	MaxAttempts int

	// OutboundQueue is the per-connection outbound frame buffer.
	OutboundQueue int
}

// Manager owns the device's single realtime connection. Connect starts
// a background loop that dials, serves, and redials until Disconnect
// is called or MaxAttempts consecutive dials fail.
type Manager struct {
	dialer         Dialer
	encoding       Codec
	registry       *Registry
	bus            *Bus
	clock          clock.Clock
	logger         *slog.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxAttempts    int
	outboundQueue  int

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	ready    chan struct{}
	watchers map[chan State]struct{}
}

// NewManager validates config and returns a disconnected manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	if config.Dialer == nil {
		return nil, errors.New("realtime: ManagerConfig.Dialer is required")
	}
	if config.Registry == nil {
		return nil, errors.New("realtime: ManagerConfig.Registry is required")
	}
	if config.Bus == nil {
		return nil, errors.New("realtime: ManagerConfig.Bus is required")
	}
	if config.Codec == nil {
		config.Codec = JSONCodec{}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.MaxBackoff < config.InitialBackoff {
		return nil, fmt.Errorf("realtime: max backoff %s is less than initial backoff %s",
			config.MaxBackoff, config.InitialBackoff)
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.OutboundQueue <= 0 {
		config.OutboundQueue = DefaultOutboundQueue
	}

	return &Manager{
		dialer:         config.Dialer,
		encoding:       config.Codec,
		registry:       config.Registry,
		bus:            config.Bus,
		clock:          config.Clock,
		logger:         config.Logger,
		initialBackoff: config.InitialBackoff,
		maxBackoff:     config.MaxBackoff,
		maxAttempts:    config.MaxAttempts,
		outboundQueue:  config.OutboundQueue,
		state:          StateDisconnected,
		ready:          make(chan struct{}),
		watchers:       make(map[chan State]struct{}),
	}, nil
}

// Registry returns the membership registry the manager replays.
func (m *Manager) Registry() *Registry { return m.registry }

// Bus returns the bus inbound notifications are published to.
func (m *Manager) Bus() *Bus { return m.bus }

// Connect starts the connection loop. It returns immediately; use
// [Manager.WaitReady] or [Manager.WatchState] to observe progress.
// Calling Connect while the loop is running does nothing, so there is
// never more than one live connection.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil {
		select {
		case <-m.done:
		default:
			return
		}
	}

	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
}

// Disconnect stops the connection loop, closes any live connection,
// and clears room membership. Blocks until the loop has exited.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	m.registry.clear()
	m.setState(StateDisconnected)
}

// WaitReady blocks until the manager is connected with every joined
// room replayed. Returns [ErrNotConnected] if the loop is not running
// or stops before connecting.
func (m *Manager) WaitReady(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	ready, done := m.ready, m.done
	m.mu.Unlock()

	if done == nil {
		return ErrNotConnected
	}
	select {
	case <-ready:
		return nil
	case <-done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected reports whether a connection is established.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// WatchState returns a channel that receives the current state and
// every later transition. The channel holds one value; a slow reader
// sees the newest state, not every intermediate one. Call the returned
// function to stop watching.
func (m *Manager) WatchState() (<-chan State, func()) {
	channel := make(chan State, 1)

	m.mu.Lock()
	channel <- m.state
	m.watchers[channel] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, channel)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.state
	if previous == state {
		return
	}
	m.state = state

	if state == StateConnected {
		close(m.ready)
	} else if previous == StateConnected {
		m.ready = make(chan struct{})
	}

	for channel := range m.watchers {
		select {
		case <-channel:
		default:
		}
		channel <- state
	}

	m.logger.Debug("realtime state changed", "from", previous.String(), "to", state.String())
}

// run is the connection loop. It exits when ctx is cancelled or after
// maxAttempts consecutive failed dials.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if ctx.Err() == nil {
			m.setState(StateDisconnected)
		}
	}()

	backoff := m.initialBackoff
	failures := 0
	m.setState(StateConnecting)

	for {
		conn, err := m.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures >= m.maxAttempts {
				m.logger.Error("realtime connection abandoned",
					"attempts", failures,
					"error", err,
				)
				return
			}
			m.logger.Warn("realtime dial failed",
				"attempt", failures,
				"max_attempts", m.maxAttempts,
				"backoff", backoff,
				"error", err,
			)
		} else {
			failures = 0
			backoff = m.initialBackoff
			err = m.serve(ctx, conn)
			if ctx.Err() != nil {
				return
			}
			if netutil.IsExpectedCloseError(err) {
				m.logger.Info("realtime connection closed", "backoff", backoff)
			} else {
				m.logger.Warn("realtime connection lost", "backoff", backoff, "error", err)
			}
		}

		m.setState(StateReconnecting)
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(backoff):
		}
		backoff = min(backoff*2, m.maxBackoff)
	}
}

// serve runs one established connection: attach it to the registry
// (replaying membership), report connected, then dispatch inbound
// frames until the connection fails or ctx is cancelled.
func (m *Manager) serve(ctx context.Context, conn Conn) error {
	session := newSession(conn, m.encoding, m.outboundQueue, m.logger)
	stop := context.AfterFunc(ctx, session.close)
	defer func() {
		stop()
		m.registry.detach(session)
		session.close()
		session.wait()
	}()

	replayed, err := m.registry.attach(session)
	if err != nil {
		return err
	}
	m.setState(StateConnected)
	m.logger.Info("realtime connected", "rooms_replayed", replayed)

	for {
		frame, err := conn.ReadMessage(ctx)
		if err != nil {
			return err
		}
		m.dispatch(frame)
	}
}

// dispatch decodes one inbound frame and publishes checkin
// notifications for joined rooms. Malformed frames are logged and
// dropped; they never end the connection.
func (m *Manager) dispatch(frame []byte) {
	message, err := m.encoding.Decode(frame)
	if err != nil {
		m.logger.Warn("dropping malformed realtime frame", "error", err)
		return
	}

	switch message.Event {
	case checkin.EventCheckin:
		var notification checkin.Notification
		if err := message.Decode(&notification); err != nil {
			m.logger.Warn("dropping undecodable checkin notification", "error", err)
			return
		}
		if err := notification.Validate(); err != nil {
			m.logger.Warn("dropping invalid checkin notification", "error", err)
			return
		}
		if notification.CheckinTime.IsZero() {
			notification.CheckinTime = m.clock.Now()
		}
		if !m.registry.Has(notification.EventID) {
			m.logger.Debug("dropping notification for room not joined",
				"event_id", notification.EventID,
				"ticket_id", notification.TicketID,
			)
			return
		}
		delivered := m.bus.Publish(notification)
		m.logger.Debug("checkin notification delivered",
			"event_id", notification.EventID,
			"ticket_id", notification.TicketID,
			"subscribers", delivered,
		)
	default:
		m.logger.Debug("ignoring realtime event", "event", message.Event)
	}
}
