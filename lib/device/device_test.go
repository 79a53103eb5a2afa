// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/checkin/eventapi"
	"github.com/bureau-foundation/checkin/lib/admission"
	"github.com/bureau-foundation/checkin/lib/config"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/lib/testutil"
	"github.com/bureau-foundation/checkin/realtime"
)

// eventServer is a minimal event API: one ticket T1 for event E1.
// A manual check-in marks T1 used and pushes the notification to the
// E1 room through the hub, as the production service does.
type eventServer struct {
	hub *realtime.MemoryHub

	mu       sync.Mutex
	status   checkin.TicketStatus
	checkin  *time.Time
	requests map[string]int // by bearer token
}

func newEventServer(hub *realtime.MemoryHub) *eventServer {
	return &eventServer{hub: hub, status: checkin.StatusValid, requests: make(map[string]int)}
}

func (s *eventServer) requestCount(token string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[token]
}

func (s *eventServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	s.requests[token]++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/tickets/my-tickets":
		s.mu.Lock()
		ticket := checkin.Ticket{ID: "T1", EventID: "E1", Status: s.status, CheckinTime: s.checkin}
		s.mu.Unlock()
		json.NewEncoder(w).Encode(checkin.TicketListResponse{Tickets: []checkin.Ticket{ticket}})

	case "/events/E1/seats":
		json.NewEncoder(w).Encode(checkin.SeatListResponse{Seats: []checkin.Seat{
			{ID: "S1", Label: "A-1", EventID: "E1", TicketID: "T1"},
		}})

	case "/events/E1/manual-check-in":
		var request checkin.ManualCheckinRequest
		json.NewDecoder(r.Body).Decode(&request)
		if request.SearchQuery != "s1234567" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(checkin.CheckinResponse{Status: checkin.ResultFake})
			return
		}

		now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
		s.mu.Lock()
		s.status = checkin.StatusUsed
		s.checkin = &now
		s.mu.Unlock()

		json.NewEncoder(w).Encode(checkin.CheckinResponse{
			Success:    true,
			Status:     checkin.ResultValid,
			Message:    "Welcome",
			TicketInfo: &checkin.TicketInfo{TicketID: "T1", EventID: "E1", CheckinTime: &now},
		})
		s.hub.Publish(checkin.Notification{
			TicketID:    "T1",
			EventID:     "E1",
			User:        checkin.UserRef{ID: "U1"},
			Status:      checkin.StatusUsed,
			CheckinTime: now,
			HandledBy:   checkin.UserRef{ID: token},
		})

	default:
		http.NotFound(w, r)
	}
}

func newTestDevice(t *testing.T, serverURL, token string, hub *realtime.MemoryHub) *Device {
	t.Helper()
	client, err := eventapi.NewClient(eventapi.ClientConfig{BaseURL: serverURL, Token: token})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	device, err := New(Options{
		API:                client,
		Dialer:             hub,
		RefreshInterval:    time.Hour,
		MinRefreshInterval: time.Millisecond,
		AttemptTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(device.Close)
	return device
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func ticketStatus(device *Device, ticketID string) checkin.TicketStatus {
	ticket, _ := device.Store.Get(ticketID)
	return ticket.Status
}

// TestTwoDeviceCheckin: staff device A checks T1 in manually; device B,
// watching E1, learns about it from the push alone.
func TestTwoDeviceCheckin(t *testing.T) {
	hub := realtime.NewMemoryHub(nil)
	server := newEventServer(hub)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	staffA := newTestDevice(t, httpServer.URL, "staff-a", hub)
	staffB := newTestDevice(t, httpServer.URL, "staff-b", hub)

	// B watches E1 from the start, so its initial refresh covers the
	// seat map and the join is replayed on connect.
	if err := staffB.Registry.Join("E1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, device := range []*Device{staffA, staffB} {
		device.Start(ctx)
		if err := device.Manager.WaitReady(ctx); err != nil {
			t.Fatalf("WaitReady: %v", err)
		}
	}

	announcement := testutil.RequireReceive(t, hub.Announcements(), 5*time.Second, "B joining E1")
	if announcement.Event != checkin.EventJoin || announcement.EventID != "E1" {
		t.Fatalf("announcement = %+v", announcement)
	}

	for _, device := range []*Device{staffA, staffB} {
		waitFor(t, "initial refresh", func() bool { return ticketStatus(device, "T1") == checkin.StatusValid })
	}
	waitFor(t, "B seat map", func() bool { return len(staffB.Store.Seats("E1")) == 1 })
	requestsBeforeB := server.requestCount("staff-b")

	attempt, err := staffA.Executor.Manual(ctx, "E1", "s1234567")
	if err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if attempt.State != admission.StateValid {
		t.Fatalf("attempt = %+v", attempt)
	}
	// A confirms from its own response, without a push (A joined no
	// room).
	if status := ticketStatus(staffA, "T1"); status != checkin.StatusUsed {
		t.Errorf("A's T1 = %s, want Used from the check-in response", status)
	}
	if staffA.Counter.Count("E1") != 1 {
		t.Errorf("A's admitted count = %d", staffA.Counter.Count("E1"))
	}

	// B learns from the push.
	waitFor(t, "B's T1 used", func() bool { return ticketStatus(staffB, "T1") == checkin.StatusUsed })
	waitFor(t, "B's seat checked in", func() bool {
		seats := staffB.Store.Seats("E1")
		return len(seats) == 1 && seats[0].CheckedIn
	})
	if staffB.Counter.Count("E1") != 1 {
		t.Errorf("B's admitted count = %d", staffB.Counter.Count("E1"))
	}
	if got := server.requestCount("staff-b"); got != requestsBeforeB {
		t.Errorf("B made %d requests after the check-in, want 0", got-requestsBeforeB)
	}

	// The shown result has to be acknowledged before the next attempt.
	if _, err := staffA.Executor.Manual(ctx, "E1", "s1234567"); !errors.Is(err, admission.ErrResultNotConsumed) {
		t.Errorf("second attempt err = %v, want ErrResultNotConsumed", err)
	}
}

// TestReconnectRepairedByRefresh: a check-in pushed while B is offline
// is lost, and the next refresh repairs B's state.
func TestReconnectRepairedByRefresh(t *testing.T) {
	hub := realtime.NewMemoryHub(nil)
	server := newEventServer(hub)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	staffA := newTestDevice(t, httpServer.URL, "staff-a", hub)
	staffB := newTestDevice(t, httpServer.URL, "staff-b", hub)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	staffA.Start(ctx)
	staffB.Start(ctx)
	if err := staffB.Manager.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	waitFor(t, "initial refresh", func() bool { return ticketStatus(staffB, "T1") == checkin.StatusValid })

	// B goes offline.
	staffB.Manager.Disconnect()

	if _, err := staffA.Executor.Manual(ctx, "E1", "s1234567"); err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if ticketStatus(staffB, "T1") != checkin.StatusValid {
		t.Fatal("offline device changed state")
	}

	// Back in focus: an on-demand refresh picks the check-in up.
	waitFor(t, "refresh accepted", staffB.Syncer.RequestRefresh)
	waitFor(t, "B repaired by refresh", func() bool { return ticketStatus(staffB, "T1") == checkin.StatusUsed })
}

func TestJoinEventLoadsSeats(t *testing.T) {
	hub := realtime.NewMemoryHub(nil)
	httpServer := httptest.NewServer(newEventServer(hub))
	defer httpServer.Close()

	client, err := eventapi.NewClient(eventapi.ClientConfig{BaseURL: httpServer.URL, Token: "staff-a"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	staff, err := New(Options{
		API:                client,
		Dialer:             hub,
		RefreshInterval:    time.Hour,
		MinRefreshInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer staff.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	staff.Start(ctx)
	waitFor(t, "initial refresh", func() bool { return ticketStatus(staff, "T1") == checkin.StatusValid })

	// Spend the on-demand refresh budget; joining must still load seats.
	staff.Syncer.RequestRefresh()
	if err := staff.JoinEvent("E1"); err != nil {
		t.Fatalf("JoinEvent: %v", err)
	}
	waitFor(t, "E1 seat map", func() bool { return len(staff.Store.Seats("E1")) == 1 })
	if !staff.Registry.Has("E1") {
		t.Error("E1 not joined")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Realtime.Encoding = "cbor"
	device, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer device.Close()
	if device.Manager.State() != realtime.StateDisconnected {
		t.Errorf("State = %s before Start", device.Manager.State())
	}

	cfg.Realtime.Encoding = "xml"
	if _, err := NewFromConfig(cfg, nil); err == nil {
		t.Error("unknown encoding accepted")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Dialer: realtime.NewMemoryHub(nil)}); err == nil {
		t.Error("missing API accepted")
	}
	client, _ := eventapi.NewClient(eventapi.ClientConfig{BaseURL: "http://localhost"})
	if _, err := New(Options{API: client}); err == nil {
		t.Error("missing Dialer accepted")
	}
}
