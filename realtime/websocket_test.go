// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

func TestWebSocketDialerEndpoint(t *testing.T) {
	tests := []struct {
		url, namespace, want string
	}{
		{"https://rt.example.edu", "/checkin", "wss://rt.example.edu/checkin"},
		{"http://localhost:3000/", "checkin", "ws://localhost:3000/checkin"},
		{"wss://rt.example.edu/socket", "", "wss://rt.example.edu/socket"},
	}
	for _, test := range tests {
		dialer := &WebSocketDialer{URL: test.url, Namespace: test.namespace}
		got, err := dialer.Endpoint()
		if err != nil {
			t.Errorf("Endpoint(%q, %q): %v", test.url, test.namespace, err)
			continue
		}
		if got != test.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", test.url, test.namespace, got, test.want)
		}
	}

	for _, bad := range []string{"ftp://example.edu", "https://", "::"} {
		if _, err := (&WebSocketDialer{URL: bad}).Endpoint(); err == nil {
			t.Errorf("Endpoint(%q) succeeded", bad)
		}
	}
}

// TestWebSocketRoundTrip runs a minimal room server over a real
// WebSocket: it answers a joinEvent with a checkin for that room.
func TestWebSocketRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	authorization := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkin" {
			http.NotFound(w, r)
			return
		}
		authorization <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		messageType, frame, err := conn.ReadMessage()
		if err != nil || messageType != websocket.TextMessage {
			return
		}
		message, err := JSONCodec{}.Decode(frame)
		if err != nil || message.Event != checkin.EventJoin {
			return
		}
		var request checkin.RoomRequest
		if err := message.Decode(&request); err != nil {
			return
		}
		reply, _ := JSONCodec{}.Encode(checkin.EventCheckin, usedNotification(request.EventID, "ticket-1"))
		conn.WriteMessage(websocket.TextMessage, reply)
		// Hold the connection until the client closes it.
		conn.ReadMessage()
	}))
	defer server.Close()

	dialer := &WebSocketDialer{
		URL:              server.URL,
		Namespace:        "/checkin",
		Token:            "device-token",
		HandshakeTimeout: 5 * time.Second,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := dialer.Dial(ctx)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if got := <-authorization; got != "Bearer device-token" {
		t.Errorf("Authorization = %q", got)
	}

	join, _ := JSONCodec{}.Encode(checkin.EventJoin, checkin.RoomRequest{EventID: "event-1"})
	if err := conn.WriteMessage(ctx, join); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	frame, err := conn.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(frame), `"eventId":"event-1"`) {
		t.Errorf("reply = %s", frame)
	}
}

func TestWebSocketDialReportsHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := (&WebSocketDialer{URL: server.URL}).Dial(context.Background())
	if err == nil {
		t.Fatal("Dial succeeded against a non-WebSocket endpoint")
	}
	if !strings.Contains(err.Error(), "HTTP 401: token expired") {
		t.Errorf("error = %v, want the status and reason mentioned", err)
	}
}
