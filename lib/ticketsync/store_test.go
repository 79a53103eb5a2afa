// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketsync

import (
	"testing"
	"time"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/lib/testutil"
)

func TestStoreAppliesPushAndPublishesChange(t *testing.T) {
	store := NewStore(nil)
	store.Replace([]checkin.Ticket{validTicket("T1", "E1"), validTicket("T2", "E1")})
	watcher := store.Watch()
	defer watcher.Close()

	if err := store.Notify(usedAt("T1", "E1", later)); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	change := testutil.RequireReceive(t, watcher.C, time.Second)
	if change.Source != SourcePush || change.TicketID != "T1" || change.EventID != "E1" {
		t.Errorf("change = %+v", change)
	}
	ticket, _ := store.Get("T1")
	if ticket.Status != checkin.StatusUsed {
		t.Errorf("T1 status = %s", ticket.Status)
	}
	if other, _ := store.Get("T2"); other.Status != checkin.StatusValid {
		t.Errorf("T2 status = %s, want untouched", other.Status)
	}
}

func TestStoreDuplicateNotificationIsSilent(t *testing.T) {
	store := NewStore(nil)
	store.Replace([]checkin.Ticket{validTicket("T1", "E1")})
	watcher := store.Watch()
	defer watcher.Close()

	if !store.ApplyNotification(usedAt("T1", "E1", later)) {
		t.Fatal("first notification reported no change")
	}
	if store.ApplyNotification(usedAt("T1", "E1", later)) {
		t.Error("duplicate notification reported a change")
	}
	testutil.RequireReceive(t, watcher.C, time.Second)
	testutil.RequireNoReceive(t, watcher.C, 10*time.Millisecond, "change for duplicate")
}

func TestStoreSelfConfirmationThenPush(t *testing.T) {
	store := NewStore(nil)
	store.Replace([]checkin.Ticket{validTicket("T1", "E1")})

	response := checkin.CheckinResponse{
		Success:    true,
		Status:     checkin.ResultValid,
		TicketInfo: &checkin.TicketInfo{TicketID: "T1", EventID: "E1"},
	}
	if !store.ApplyResult(response, earlier) {
		t.Fatal("ApplyResult reported no change")
	}
	// The push for the same check-in arrives afterwards.
	if store.ApplyNotification(usedAt("T1", "E1", later)) {
		t.Error("push after self-confirmation changed state")
	}
	ticket, _ := store.Get("T1")
	if !ticket.CheckinTime.Equal(earlier) {
		t.Errorf("CheckinTime = %v, want the first confirmation's %v", ticket.CheckinTime, earlier)
	}
}

func TestStoreApplyResultIgnoresRejections(t *testing.T) {
	store := NewStore(nil)
	store.Replace([]checkin.Ticket{validTicket("T1", "E1")})
	response := checkin.CheckinResponse{
		Status:     checkin.ResultWrongEvent,
		TicketInfo: &checkin.TicketInfo{TicketID: "T1", EventID: "E1"},
	}
	if store.ApplyResult(response, later) {
		t.Error("WRONG_EVENT response changed state")
	}
}

func TestStoreReplaceMergesAndRemoves(t *testing.T) {
	store := NewStore(nil)
	store.Replace([]checkin.Ticket{validTicket("T1", "E1"), validTicket("T2", "E2")})
	store.ApplyNotification(usedAt("T1", "E1", later))

	// A stale list still shows T1 valid and no longer has T2.
	store.Replace([]checkin.Ticket{validTicket("T1", "E1"), validTicket("T3", "E1"), {EventID: "E9"}})

	tickets := store.List()
	if len(tickets) != 2 {
		t.Fatalf("List = %+v, want T1 and T3", tickets)
	}
	if tickets[0].ID != "T1" || tickets[0].Status != checkin.StatusUsed {
		t.Errorf("T1 = %+v, want Used kept", tickets[0])
	}
	if _, ok := store.Get("T2"); ok {
		t.Error("T2 survived a refresh that no longer lists it")
	}
	if events := store.EventIDs(); len(events) != 1 || events[0] != "E1" {
		t.Errorf("EventIDs = %v", events)
	}
}

func TestStoreUpsert(t *testing.T) {
	store := NewStore(nil)
	store.Replace([]checkin.Ticket{validTicket("T1", "E1")})
	store.ApplyNotification(usedAt("T1", "E1", later))

	store.Upsert(checkin.Ticket{ID: "T1", EventID: "E1", Status: checkin.StatusValid, SeatID: "S1"})
	ticket, _ := store.Get("T1")
	if ticket.Status != checkin.StatusUsed || ticket.SeatID != "S1" {
		t.Errorf("after Upsert = %+v", ticket)
	}
}

func TestStoreSeats(t *testing.T) {
	store := NewStore(nil)
	store.ReplaceSeats("E1", []checkin.Seat{
		{ID: "S2", Label: "B-1", TicketID: "T2"},
		{ID: "S1", Label: "A-1", TicketID: "T1"},
	})
	store.ReplaceSeats("E2", []checkin.Seat{{ID: "S9", Label: "Z-9", TicketID: "T9"}})

	if !store.ApplyNotification(usedAt("T1", "E1", later)) {
		t.Fatal("seat-only notification reported no change")
	}
	seats := store.Seats("E1")
	if len(seats) != 2 || seats[0].ID != "S1" {
		t.Fatalf("Seats(E1) = %+v", seats)
	}
	if !seats[0].CheckedIn || seats[1].CheckedIn {
		t.Errorf("checked in = %v/%v, want true/false", seats[0].CheckedIn, seats[1].CheckedIn)
	}

	// A refresh that has not caught up keeps the seat checked in.
	store.ReplaceSeats("E1", []checkin.Seat{{ID: "S1", Label: "A-1", TicketID: "T1"}})
	seats = store.Seats("E1")
	if len(seats) != 1 || !seats[0].CheckedIn {
		t.Fatalf("after refresh Seats(E1) = %+v", seats)
	}
	if seats[0].CheckinTime == nil || !seats[0].CheckinTime.Equal(later) {
		t.Errorf("after refresh CheckinTime = %v, want %v", seats[0].CheckinTime, later)
	}
	if len(store.Seats("E2")) != 1 {
		t.Error("refreshing E1 touched E2's seats")
	}
}

func TestStoreWatcherResyncOnOverflow(t *testing.T) {
	store := NewStore(nil)
	watcher := store.Watch()
	defer watcher.Close()

	for range WatcherChannelSize + 1 {
		store.Replace(nil)
	}
	if !watcher.Resync.Load() {
		t.Error("Resync not set after overflow")
	}

	watcher.Close()
	watcher.Close()
	for len(watcher.C) > 0 {
		<-watcher.C
	}
	store.Replace(nil)
	if len(watcher.C) != 0 {
		t.Error("closed watcher still receives changes")
	}
}
