// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/checkin/cmd/checkin/cli"
	"github.com/bureau-foundation/checkin/lib/device"
	"github.com/bureau-foundation/checkin/lib/monitor"
)

type watchFlags struct {
	configFlags
	events []string
	plain  bool
}

func watchCommand(env Env) *cli.Command {
	var flags watchFlags
	return &cli.Command{
		Name:    "watch",
		Summary: "Watch live check-ins for events",
		Description: `Connect to the realtime channel, join the given event rooms, and
show check-ins as they happen at every door, with admitted counts and
the state of your own tickets.

An interactive terminal gets a full-screen view. With --plain, or
when stdout is not a terminal, one line is printed per check-in and
connection change.`,
		Usage: "checkin watch [--event <event-id>]... [--plain]",
		Examples: []cli.Example{
			{Description: "Watch two events", Command: "checkin watch -e evt-42 -e evt-43"},
			{Description: "Log check-ins to a file", Command: "checkin watch -e evt-42 --plain >> door.log"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringArrayVarP(&flags.events, "event", "e", nil, "event to watch (repeatable)")
			flagSet.BoolVar(&flags.plain, "plain", false, "print one line per check-in instead of the interactive view")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return errors.New("watch takes no positional arguments; use --event")
			}
			return runWatch(env, &flags)
		},
	}
}

func runWatch(env Env, flags *watchFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}

	stdout, isFile := env.Stdout.(*os.File)
	interactive := !flags.plain && isFile && cli.IsTerminal(stdout)

	// The interactive view owns the terminal, so logs go to its status
	// bar instead of stderr.
	var logHandler *monitor.LogHandler
	logger := env.logger(cfg)
	if interactive && env.Logger == nil {
		logHandler = monitor.NewLogHandler(slog.LevelWarn)
		logger = slog.New(logHandler)
	}
	logger = logger.With("command", "watch")

	dev, err := device.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	// Joined before Start, the rooms are announced as part of the
	// first connection and their seat maps load with the first
	// refresh.
	for _, eventID := range flags.events {
		if err := dev.Registry.Join(eventID); err != nil {
			return err
		}
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	events := monitor.Attach(ctx, dev)
	dev.Start(ctx)

	if !interactive {
		return monitor.Print(ctx, termenv.NewOutput(env.Stdout), events)
	}

	model := monitor.NewModel(monitor.DeviceSource(dev), monitor.Options{Events: events})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if logHandler != nil {
		logHandler.SetProgram(program)
	}
	if _, err := program.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
