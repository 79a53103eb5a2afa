// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/checkin/realtime"
)

// Print writes one line per connection state transition and check-in
// until events is closed or ctx is done. Store changes are not
// printed; they are always a consequence of a printed check-in or a
// refresh. Colors follow output's profile, so a pipe gets plain text.
func Print(ctx context.Context, output *termenv.Output, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := printEvent(output, event); err != nil {
				return err
			}
		}
	}
}

func printEvent(output *termenv.Output, event Event) error {
	var line string
	switch event.Kind {
	case EventState:
		color := "1"
		switch event.State {
		case realtime.StateConnected:
			color = "2"
		case realtime.StateConnecting, realtime.StateReconnecting:
			color = "3"
		}
		line = fmt.Sprintf("%s realtime %s",
			time.Now().Format(time.TimeOnly),
			output.String(event.State.String()).Foreground(output.Color(color)),
		)

	case EventCheckin:
		notification := event.Notification
		line = fmt.Sprintf("%s %s %s event=%s user=%s",
			notification.CheckinTime.Local().Format(time.TimeOnly),
			output.String("checkin").Foreground(output.Color("2")).Bold(),
			notification.TicketID,
			notification.EventID,
			notification.User.Display(),
		)
		if handler := notification.HandledBy.Display(); handler != "" {
			line += " by=" + handler
		}

	default:
		return nil
	}
	_, err := io.WriteString(output, line+"\n")
	return err
}
