// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/checkin/cmd/checkin/cli"
	"github.com/bureau-foundation/checkin/lib/device"
)

type qrFlags struct {
	configFlags
	out     string
	size    int
	inverse bool
}

func qrCommand(env Env) *cli.Command {
	var flags qrFlags
	return &cli.Command{
		Name:    "qr",
		Summary: "Show the QR code of one of your tickets",
		Description: `Fetch a ticket and render its check-in QR code, either in the
terminal or as a PNG file to show on a phone screen.`,
		Usage: "checkin qr <ticket-id> [--out <file.png>]",
		Examples: []cli.Example{
			{Description: "Show in the terminal", Command: "checkin qr tkt-1001"},
			{Description: "Save as an image", Command: "checkin qr tkt-1001 --out ticket.png"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("qr", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVarP(&flags.out, "out", "o", "", "write a PNG to this path instead of drawing in the terminal")
			flagSet.IntVar(&flags.size, "size", 512, "PNG size in pixels")
			flagSet.BoolVar(&flags.inverse, "inverse", false, "swap dark and light modules for light-background terminals")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one ticket id")
			}
			return runQR(env, &flags, args[0])
		},
	}
}

func runQR(env Env, flags *qrFlags, ticketID string) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	client, _, _, err := device.Transports(cfg, env.logger(cfg).With("command", "qr"))
	if err != nil {
		return err
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	ticket, err := client.Ticket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Credential.IsZero() {
		return fmt.Errorf("ticket %s has no QR credential", ticketID)
	}

	if flags.out != "" {
		png, err := ticket.Credential.QRCode(flags.size)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.out, png, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "Wrote %s (%s, %s)\n", flags.out, ticket.ID, ticket.Status)
		return nil
	}

	text, err := ticket.Credential.QRText(!flags.inverse)
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.Stdout, text+fmt.Sprintf("%s  %s  %s\n", ticket.ID, ticket.EventID, ticket.Status))
	return err
}
