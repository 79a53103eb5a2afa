// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/checkin/cmd/checkin/cli"
	"github.com/bureau-foundation/checkin/lib/admission"
	"github.com/bureau-foundation/checkin/lib/device"
)

type admitFlags struct {
	configFlags
	eventID string
}

func (flags *admitFlags) flagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.register(flagSet)
	flagSet.StringVarP(&flags.eventID, "event", "e", "", "event being admitted (required)")
	return flagSet
}

func scanCommand(env Env) *cli.Command {
	var flags admitFlags
	return &cli.Command{
		Name:    "scan",
		Summary: "Check in a scanned QR payload",
		Description: `Check in the ticket whose QR payload was scanned at the door.

Exits 0 when the ticket was admitted or had already been admitted,
and 1 when it was rejected (not a ticket, or a ticket for another
event) or the request failed.`,
		Usage: "checkin scan --event <event-id> <qr-payload>",
		Examples: []cli.Example{
			{Description: "Admit a scanned ticket", Command: "checkin scan --event evt-42 TKT-7f3a9c"},
		},
		Flags: func() *pflag.FlagSet { return flags.flagSet("scan") },
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one QR payload")
			}
			return runAdmission(env, &flags, func(ctx context.Context, executor *admission.Executor) (admission.Attempt, error) {
				return executor.Scan(ctx, flags.eventID, args[0])
			})
		},
	}
}

func manualCommand(env Env) *cli.Command {
	var flags admitFlags
	return &cli.Command{
		Name:    "manual",
		Summary: "Check in by student id or email",
		Description: `Check in an attendee who cannot show a QR code, looking the
ticket up by student id or email address. Exit codes match scan.`,
		Usage: "checkin manual --event <event-id> <student-id|email>",
		Examples: []cli.Example{
			{Description: "Admit by student id", Command: "checkin manual --event evt-42 s1234567"},
		},
		Flags: func() *pflag.FlagSet { return flags.flagSet("manual") },
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one student id or email")
			}
			return runAdmission(env, &flags, func(ctx context.Context, executor *admission.Executor) (admission.Attempt, error) {
				return executor.Manual(ctx, flags.eventID, args[0])
			})
		},
	}
}

func runAdmission(env Env, flags *admitFlags, attempt func(context.Context, *admission.Executor) (admission.Attempt, error)) error {
	if strings.TrimSpace(flags.eventID) == "" {
		return errors.New("--event is required")
	}
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	logger := env.logger(cfg).With("command", "admit", "event_id", flags.eventID)

	client, _, _, err := device.Transports(cfg, logger)
	if err != nil {
		return err
	}
	executor, err := admission.NewExecutor(admission.ExecutorConfig{
		API:     client,
		Logger:  logger,
		Timeout: cfg.Checkin.AttemptTimeout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	result, err := attempt(ctx, executor)
	if err != nil {
		return err
	}
	printAttempt(termenv.NewOutput(env.Stdout), result)
	if result.Err != nil {
		logger.Error("check-in failed", "attempt_id", result.ID, "error", result.Err)
	}
	if !result.State.Success() {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// attemptLabels are the headline words for each terminal state, with
// their ANSI colors.
var attemptLabels = map[admission.State]struct {
	text  string
	color string
}{
	admission.StateValid:      {"ADMITTED", "2"},
	admission.StateUsed:       {"ALREADY ADMITTED", "3"},
	admission.StateFake:       {"NOT A TICKET", "1"},
	admission.StateWrongEvent: {"WRONG EVENT", "1"},
	admission.StateFailed:     {"FAILED", "1"},
}

// printAttempt writes the headline and the resolved ticket, if any.
func printAttempt(output *termenv.Output, attempt admission.Attempt) {
	label, ok := attemptLabels[attempt.State]
	if !ok {
		label.text, label.color = strings.ToUpper(string(attempt.State)), "7"
	}
	headline := output.String(label.text).Foreground(output.Color(label.color)).Bold()
	fmt.Fprintf(output, "%s  %s\n", headline, attempt.Message)

	if info := attempt.Ticket; info != nil {
		details := []string{"ticket " + info.TicketID}
		if name := info.Attendee.Display(); name != "" {
			details = append(details, name)
		}
		if info.SeatLabel != "" {
			details = append(details, "seat "+info.SeatLabel)
		}
		if info.CheckinTime != nil {
			details = append(details, "checked in "+info.CheckinTime.Local().Format(time.Kitchen))
		}
		io.WriteString(output, "  "+strings.Join(details, " · ")+"\n")
	}
}
