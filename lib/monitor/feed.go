// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"

	"github.com/bureau-foundation/checkin/lib/device"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/lib/ticketsync"
	"github.com/bureau-foundation/checkin/realtime"
)

// feedBuffer is the capacity of the feed's internal channels. A
// monitor that falls this far behind drops check-in rows; the Store
// and counter still see every notification through their own
// subscriptions.
const feedBuffer = 64

// errFeedFull is reported to the bus when the monitor cannot keep up.
var errFeedFull = errors.New("monitor feed full")

// EventKind identifies which field of an [Event] is set.
type EventKind int

const (
	// EventState carries a connection state transition.
	EventState EventKind = iota
	// EventCheckin carries a notification delivered by the bus.
	EventCheckin
	// EventChange carries a Store change.
	EventChange
)

// Event is one item of the monitor feed.
type Event struct {
	Kind         EventKind
	State        realtime.State
	Notification checkin.Notification
	Change       ticketsync.Change
}

// Source is the snapshot side of the monitor: everything the view
// renders that is not carried by an Event.
type Source interface {
	Rooms() []string
	Counts() map[string]int
	Tickets() []checkin.Ticket
	RequestRefresh() bool
}

// DeviceSource adapts a device to [Source].
func DeviceSource(dev *device.Device) Source {
	return deviceSource{dev}
}

type deviceSource struct {
	dev *device.Device
}

func (source deviceSource) Rooms() []string { return source.dev.Registry.CurrentRooms() }
func (source deviceSource) Counts() map[string]int { return source.dev.Counter.Snapshot() }
func (source deviceSource) Tickets() []checkin.Ticket { return source.dev.Store.List() }
func (source deviceSource) RequestRefresh() bool { return source.dev.Syncer.RequestRefresh() }

// Attach merges the device's connection state, bus check-ins, and
// Store changes into one channel. The first Event is always the
// current connection state. The channel is closed after ctx is done
// and every subscription has been released.
//
// A Store watcher overflow is reported as a refresh Change with an
// empty TicketID, which tells the reader to re-read everything.
func Attach(ctx context.Context, dev *device.Device) <-chan Event {
	events := make(chan Event, feedBuffer)

	states, stopStates := dev.Manager.WatchState()
	watcher := dev.Store.Watch()
	checkins := make(chan checkin.Notification, feedBuffer)
	subscription := dev.Bus.Subscribe("monitor", realtime.SubscriberFunc(func(notification checkin.Notification) error {
		select {
		case checkins <- notification:
			return nil
		default:
			return errFeedFull
		}
	}))

	go func() {
		defer close(events)
		defer stopStates()
		defer watcher.Close()
		defer subscription.Unsubscribe()

		for {
			var event Event
			select {
			case <-ctx.Done():
				return
			case state := <-states:
				event = Event{Kind: EventState, State: state}
			case notification := <-checkins:
				event = Event{Kind: EventCheckin, Notification: notification}
			case change := <-watcher.C:
				if watcher.Resync.Swap(false) {
					change = ticketsync.Change{Source: ticketsync.SourceRefresh}
				}
				event = Event{Kind: EventChange, Change: change}
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}
