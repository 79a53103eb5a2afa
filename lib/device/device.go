// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package device assembles the check-in sync components for one
// process. There is exactly one [Device] per process: one realtime
// connection, one room registry, one notification bus, one ticket
// store. Screens and commands receive the Device (or the component
// they need) explicitly instead of reaching for globals.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/checkin/eventapi"
	"github.com/bureau-foundation/checkin/lib/admission"
	"github.com/bureau-foundation/checkin/lib/clock"
	"github.com/bureau-foundation/checkin/lib/config"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/lib/ticketsync"
	"github.com/bureau-foundation/checkin/realtime"
)

// API is the REST surface the device needs. *eventapi.Client
// implements it.
type API interface {
	admission.API
	ticketsync.Fetcher
}

// Options configures [New].
type Options struct {
	// API performs check-ins and ticket reads. Required.
	API API

	// Dialer connects the realtime channel. Required.
	Dialer realtime.Dialer

	// Codec is the realtime frame encoding. Defaults to JSON.
	Codec realtime.Codec

	Clock  clock.Clock
	Logger *slog.Logger

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
	OutboundQueue  int

	RefreshInterval    time.Duration
	MinRefreshInterval time.Duration

	AttemptTimeout time.Duration
}

// Device owns the sync components of one process.
type Device struct {
	Registry *realtime.Registry
	Bus      *realtime.Bus
	Manager  *realtime.Manager
	Store    *ticketsync.Store
	Counter  *ticketsync.Counter
	Syncer   *ticketsync.Syncer
	Executor *admission.Executor

	logger              *slog.Logger
	counterSubscription *realtime.Subscription

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a stopped device.
func New(options Options) (*Device, error) {
	if options.API == nil {
		return nil, errors.New("device: Options.API is required")
	}
	if options.Dialer == nil {
		return nil, errors.New("device: Options.Dialer is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	logger := options.Logger

	registry := realtime.NewRegistry(logger.With("component", "rooms"))
	bus := realtime.NewBus(logger.With("component", "bus"))
	manager, err := realtime.NewManager(realtime.ManagerConfig{
		Dialer:         options.Dialer,
		Codec:          options.Codec,
		Registry:       registry,
		Bus:            bus,
		Clock:          options.Clock,
		Logger:         logger.With("component", "realtime"),
		InitialBackoff: options.InitialBackoff,
		MaxBackoff:     options.MaxBackoff,
		MaxAttempts:    options.MaxAttempts,
		OutboundQueue:  options.OutboundQueue,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	store := ticketsync.NewStore(logger.With("component", "store"))
	counter := ticketsync.NewCounter()
	syncer, err := ticketsync.NewSyncer(ticketsync.SyncerConfig{
		Store:              store,
		Bus:                bus,
		Fetcher:            options.API,
		SeatEvents:         registry.CurrentRooms,
		Clock:              options.Clock,
		Logger:             logger.With("component", "sync"),
		RefreshInterval:    options.RefreshInterval,
		MinRefreshInterval: options.MinRefreshInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	executor, err := admission.NewExecutor(admission.ExecutorConfig{
		API: options.API,
		// The device's own admissions confirm local state and the
		// counter without waiting for the push.
		Confirmer: admission.ConfirmerFunc(func(response checkin.CheckinResponse, at time.Time) bool {
			changed := store.ApplyResult(response, at)
			if notification, ok := ticketsync.FromResult(response, at); ok {
				counter.Record(notification)
			}
			return changed
		}),
		Clock:   options.Clock,
		Logger:  logger.With("component", "admission"),
		Timeout: options.AttemptTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	return &Device{
		Registry:            registry,
		Bus:                 bus,
		Manager:             manager,
		Store:               store,
		Counter:             counter,
		Syncer:              syncer,
		Executor:            executor,
		logger:              logger,
		counterSubscription: bus.Subscribe("admitted-counter", counter),
	}, nil
}

// NewFromConfig builds a device that talks to the services named in
// cfg over HTTP and WebSocket.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Device, error) {
	client, dialer, encoding, err := Transports(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(Options{
		API:                client,
		Dialer:             dialer,
		Codec:              encoding,
		Logger:             logger,
		InitialBackoff:     cfg.Realtime.InitialBackoff,
		MaxBackoff:         cfg.Realtime.MaxBackoff,
		MaxAttempts:        cfg.Realtime.MaxAttempts,
		OutboundQueue:      cfg.Realtime.OutboundQueue,
		RefreshInterval:    cfg.Sync.RefreshInterval,
		MinRefreshInterval: cfg.Sync.MinRefreshInterval,
		AttemptTimeout:     cfg.Checkin.AttemptTimeout,
	})
}

// Transports builds the REST client and realtime dialer described by
// cfg. Commands that only need the REST API use the client alone.
func Transports(cfg *config.Config, logger *slog.Logger) (*eventapi.Client, *realtime.WebSocketDialer, realtime.Codec, error) {
	client, err := eventapi.NewClient(eventapi.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	encoding, err := realtime.CodecByName(cfg.Realtime.Encoding)
	if err != nil {
		return nil, nil, nil, err
	}
	dialer := &realtime.WebSocketDialer{
		URL:              cfg.Realtime.URL,
		Namespace:        cfg.Realtime.Namespace,
		Token:            cfg.API.Token,
		Binary:           encoding.Binary(),
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
	}
	return client, dialer, encoding, nil
}

// Start connects the realtime channel and starts background
// refreshes. It returns immediately. Calling Start on a running device
// does nothing.
func (d *Device) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	d.Manager.Connect()
	go func() {
		defer close(d.done)
		d.Syncer.Run(ctx)
	}()
}

// JoinEvent starts receiving check-ins for an event and loads its seat
// map.
func (d *Device) JoinEvent(eventID string) error {
	if err := d.Registry.Join(eventID); err != nil {
		return err
	}
	d.Syncer.LoadSeats(eventID)
	return nil
}

// LeaveEvent stops receiving check-ins for an event.
func (d *Device) LeaveEvent(eventID string) error {
	return d.Registry.Leave(eventID)
}

// Close stops refreshes, disconnects the realtime channel, and
// detaches the counter. The device cannot be restarted.
func (d *Device) Close() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	d.Manager.Disconnect()
	d.counterSubscription.Unsubscribe()
}
