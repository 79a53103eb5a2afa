// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/checkin/cmd/checkin/cli"
	"github.com/bureau-foundation/checkin/lib/device"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

type ticketsFlags struct {
	configFlags
	eventID string
}

func ticketsCommand(env Env) *cli.Command {
	var flags ticketsFlags
	return &cli.Command{
		Name:    "tickets",
		Summary: "List your tickets",
		Usage:   "checkin tickets [--event <event-id>]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("tickets", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVarP(&flags.eventID, "event", "e", "", "only tickets for this event")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return errors.New("tickets takes no positional arguments")
			}
			return runTickets(env, &flags)
		},
	}
}

func runTickets(env Env, flags *ticketsFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	client, _, _, err := device.Transports(cfg, env.logger(cfg).With("command", "tickets"))
	if err != nil {
		return err
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	tickets, err := client.MyTickets(ctx)
	if err != nil {
		return err
	}
	if flags.eventID != "" {
		tickets = slices.DeleteFunc(tickets, func(ticket checkin.Ticket) bool {
			return ticket.EventID != flags.eventID
		})
	}
	slices.SortFunc(tickets, func(a, b checkin.Ticket) int {
		if c := strings.Compare(a.EventID, b.EventID); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	output := termenv.NewOutput(env.Stdout)
	if len(tickets) == 0 {
		fmt.Fprintln(output, "No tickets.")
		return nil
	}

	writer := tabwriter.NewWriter(output, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "TICKET\tEVENT\tSTATUS\tCHECKED IN")
	for _, ticket := range tickets {
		checkedIn := "-"
		if ticket.CheckinTime != nil {
			checkedIn = ticket.CheckinTime.Local().Format(time.DateTime)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", ticket.ID, ticket.EventID, statusText(output, ticket.Status), checkedIn)
	}
	return writer.Flush()
}

// statusText colors a ticket status. The text is padded before
// coloring so tabwriter columns stay aligned on color terminals.
func statusText(output *termenv.Output, status checkin.TicketStatus) string {
	color := "7"
	switch status {
	case checkin.StatusValid:
		color = "4"
	case checkin.StatusUsed:
		color = "2"
	case checkin.StatusCancelled, checkin.StatusExpired:
		color = "8"
	}
	return output.String(fmt.Sprintf("%-9s", status)).Foreground(output.Color(color)).String()
}
