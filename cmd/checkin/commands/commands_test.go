// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/checkin/cmd/checkin/cli"
	"github.com/bureau-foundation/checkin/lib/credential"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
	"github.com/bureau-foundation/checkin/realtime"
)

var checkinTime = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

// newTestServer serves the event API under /api and a realtime room
// server at /checkin that answers every join with one check-in.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
	admitted := checkin.CheckinResponse{
		Success: true,
		Status:  checkin.ResultValid,
		Message: "Welcome",
		TicketInfo: &checkin.TicketInfo{
			TicketID:    "T1",
			EventID:     "E1",
			Attendee:    checkin.UserRef{Name: "Ada Lovelace"},
			SeatLabel:   "A-1",
			CheckinTime: &checkinTime,
		},
	}

	mux.HandleFunc("POST /api/events/{event}/check-in", func(w http.ResponseWriter, r *http.Request) {
		var request checkin.CheckinRequest
		json.NewDecoder(r.Body).Decode(&request)
		switch {
		case r.PathValue("event") != "E1":
			writeJSON(w, http.StatusBadRequest, checkin.CheckinResponse{Status: checkin.ResultWrongEvent, Message: "Ticket is for another event"})
		case request.QRCode == "TKT-valid":
			writeJSON(w, http.StatusOK, admitted)
		case request.QRCode == "TKT-used":
			writeJSON(w, http.StatusOK, checkin.CheckinResponse{Status: checkin.ResultUsed})
		default:
			writeJSON(w, http.StatusNotFound, checkin.CheckinResponse{Status: checkin.ResultFake})
		}
	})
	mux.HandleFunc("POST /api/events/{event}/manual-check-in", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, admitted)
	})
	mux.HandleFunc("GET /api/tickets/my-tickets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checkin.TicketListResponse{Tickets: []checkin.Ticket{
			{ID: "T2", EventID: "E2", Status: checkin.StatusValid},
			{ID: "T1", EventID: "E1", Status: checkin.StatusUsed, CheckinTime: &checkinTime},
		}})
	})
	mux.HandleFunc("GET /api/tickets/{ticket}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("ticket") != "T1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, checkin.TicketResponse{Ticket: checkin.Ticket{
			ID: "T1", EventID: "E1", Status: checkin.StatusValid, Credential: credential.MustParse("TKT-valid"),
		}})
	})
	mux.HandleFunc("GET /api/events/{event}/seats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checkin.SeatListResponse{})
	})

	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/checkin", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			message, err := realtime.JSONCodec{}.Decode(frame)
			if err != nil || message.Event != checkin.EventJoin {
				continue
			}
			var request checkin.RoomRequest
			if err := message.Decode(&request); err != nil {
				continue
			}
			reply, _ := realtime.JSONCodec{}.Encode(checkin.EventCheckin, checkin.Notification{
				TicketID:    "T1",
				EventID:     request.EventID,
				User:        checkin.UserRef{Name: "Ada Lovelace"},
				Status:      checkin.StatusUsed,
				CheckinTime: checkinTime,
				HandledBy:   checkin.UserRef{Name: "Door 2"},
			})
			conn.WriteMessage(websocket.TextMessage, reply)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkin.yaml")
	content := fmt.Sprintf(`api:
  base_url: %s/api
  token: staff-token
realtime:
  url: %s
  namespace: /checkin
sync:
  refresh_interval: 1h
  min_refresh_interval: 1s
logging:
  level: error
`, serverURL, serverURL)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

type testEnv struct {
	Env
	stdout *syncBuffer
	stderr *bytes.Buffer
}

func newTestEnv(ctx context.Context) testEnv {
	stdout := &syncBuffer{}
	stderr := &bytes.Buffer{}
	return testEnv{
		Env: Env{
			Stdout:  stdout,
			Stderr:  stderr,
			Context: ctx,
			Logger:  slog.New(slog.DiscardHandler),
		},
		stdout: stdout,
		stderr: stderr,
	}
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

func exitCode(err error) int {
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestAdmissionCommands(t *testing.T) {
	server := newTestServer(t)
	configPath := writeConfig(t, server.URL)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     []string
	}{
		{
			name:     "scan valid",
			args:     []string{"scan", "--config", configPath, "--event", "E1", "TKT-valid"},
			wantCode: 0,
			want:     []string{"ADMITTED", "Welcome", "ticket T1", "Ada Lovelace", "seat A-1"},
		},
		{
			name:     "scan already used",
			args:     []string{"scan", "--config", configPath, "-e", "E1", "TKT-used"},
			wantCode: 0,
			want:     []string{"ALREADY ADMITTED", "already checked in"},
		},
		{
			name:     "scan fake",
			args:     []string{"scan", "--config", configPath, "-e", "E1", "TKT-forged"},
			wantCode: 1,
			want:     []string{"NOT A TICKET"},
		},
		{
			name:     "scan wrong event",
			args:     []string{"scan", "--config", configPath, "-e", "E2", "TKT-valid"},
			wantCode: 1,
			want:     []string{"WRONG EVENT", "another event"},
		},
		{
			name:     "manual",
			args:     []string{"manual", "--config", configPath, "-e", "E1", "s1234567"},
			wantCode: 0,
			want:     []string{"ADMITTED", "ticket T1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(context.Background())
			err := Root(env.Env).Execute(test.args)
			if got := exitCode(err); got != test.wantCode {
				t.Fatalf("exit code = %d (err %v), want %d", got, err, test.wantCode)
			}
			for _, want := range test.want {
				if !strings.Contains(env.stdout.String(), want) {
					t.Errorf("output missing %q:\n%s", want, env.stdout.String())
				}
			}
			if strings.Contains(env.stdout.String(), "\x1b[") {
				t.Error("non-terminal output contains escape sequences")
			}
		})
	}
}

func TestAdmissionArgumentErrors(t *testing.T) {
	server := newTestServer(t)
	configPath := writeConfig(t, server.URL)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing event", []string{"scan", "--config", configPath, "TKT-valid"}, "--event is required"},
		{"missing payload", []string{"scan", "--config", configPath, "-e", "E1"}, "exactly one QR payload"},
		{"invalid payload", []string{"scan", "--config", configPath, "-e", "E1", "bad\tpayload"}, "credential"},
		{"empty query", []string{"manual", "--config", configPath, "-e", "E1", "  "}, ""},
		{"missing config", []string{"tickets", "--config", filepath.Join(t.TempDir(), "absent.yaml")}, "absent.yaml"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(context.Background())
			err := Root(env.Env).Execute(test.args)
			if err == nil {
				t.Fatal("expected an error")
			}
			var exitErr *cli.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("got ExitError, want a reported error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %q, want it to contain %q", err, test.want)
			}
		})
	}
}

func TestTicketsCommand(t *testing.T) {
	server := newTestServer(t)
	configPath := writeConfig(t, server.URL)

	env := newTestEnv(context.Background())
	if err := Root(env.Env).Execute([]string{"tickets", "--config", configPath}); err != nil {
		t.Fatalf("tickets: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(env.stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 tickets:\n%s", len(lines), env.stdout.String())
	}
	if !strings.HasPrefix(lines[0], "TICKET") || !strings.HasPrefix(lines[1], "T1") || !strings.HasPrefix(lines[2], "T2") {
		t.Errorf("unexpected table:\n%s", env.stdout.String())
	}

	env = newTestEnv(context.Background())
	if err := Root(env.Env).Execute([]string{"tickets", "--config", configPath, "--event", "E2"}); err != nil {
		t.Fatalf("tickets --event: %v", err)
	}
	if strings.Contains(env.stdout.String(), "T1") || !strings.Contains(env.stdout.String(), "T2") {
		t.Errorf("event filter not applied:\n%s", env.stdout.String())
	}
}

func TestQRCommand(t *testing.T) {
	server := newTestServer(t)
	configPath := writeConfig(t, server.URL)

	out := filepath.Join(t.TempDir(), "ticket.png")
	env := newTestEnv(context.Background())
	if err := Root(env.Env).Execute([]string{"qr", "--config", configPath, "T1", "--out", out, "--size", "128"}); err != nil {
		t.Fatalf("qr --out: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output file is not a PNG")
	}

	env = newTestEnv(context.Background())
	if err := Root(env.Env).Execute([]string{"qr", "--config", configPath, "T1"}); err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "T1  E1  Valid") {
		t.Errorf("terminal QR missing caption:\n%s", env.stdout.String())
	}

	env = newTestEnv(context.Background())
	if err := Root(env.Env).Execute([]string{"qr", "--config", configPath, "T404"}); err == nil {
		t.Error("missing ticket did not fail")
	}
}

func TestWatchPlain(t *testing.T) {
	server := newTestServer(t)
	configPath := writeConfig(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(ctx)

	result := make(chan error, 1)
	go func() {
		result <- Root(env.Env).Execute([]string{"watch", "--config", configPath, "--event", "E1", "--plain"})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(env.stdout.String(), "checkin T1 event=E1") {
		if time.Now().After(deadline) {
			t.Fatalf("no check-in line printed:\n%s", env.stdout.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(env.stdout.String(), "realtime connected") {
		t.Errorf("connection line missing:\n%s", env.stdout.String())
	}

	cancel()
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	env := newTestEnv(context.Background())
	err := Root(env.Env).Execute([]string{"scna"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "scan"?`) {
		t.Errorf("err = %v", err)
	}
}
