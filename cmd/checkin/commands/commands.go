// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the checkin command tree.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/checkin/cmd/checkin/cli"
	"github.com/bureau-foundation/checkin/lib/config"
)

// Env is the process environment the commands run in. Tests replace
// the writers and the base context.
type Env struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Context context.Context

	// Logger overrides the configured command logger.
	Logger *slog.Logger
}

// DefaultEnv is the real process environment.
func DefaultEnv() Env {
	return Env{Stdout: os.Stdout, Stderr: os.Stderr, Context: context.Background()}
}

// Root builds the complete command tree.
func Root(env Env) *cli.Command {
	return &cli.Command{
		Name: "checkin",
		Description: `checkin: door check-in for university events.

Admit attendees by scanned QR payload or by student id, watch live
check-ins from other doors, and inspect your own tickets.`,
		Output: env.Stderr,
		Subcommands: []*cli.Command{
			scanCommand(env),
			manualCommand(env),
			watchCommand(env),
			ticketsCommand(env),
			qrCommand(env),
		},
	}
}

// configFlags holds the flags shared by every command.
type configFlags struct {
	path string
}

func (flags *configFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&flags.path, "config", "",
		"path to checkin.yaml (default: $"+config.EnvironmentVariable+")")
}

// load reads and validates the configuration.
func (flags *configFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.path != "" {
		cfg, err = config.LoadFile(flags.path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger returns env's logger, or a command logger at the configured
// level.
func (env Env) logger(cfg *config.Config) *slog.Logger {
	if env.Logger != nil {
		return env.Logger
	}
	level, _ := cfg.LogLevel()
	return cli.NewCommandLogger(level)
}

// signalContext derives a context cancelled by SIGINT or SIGTERM.
func (env Env) signalContext() (context.Context, context.CancelFunc) {
	base := env.Context
	if base == nil {
		base = context.Background()
	}
	return signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
}
