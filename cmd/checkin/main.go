// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command checkin is the door-staff client for university event
// check-in.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/checkin/cmd/checkin/commands"
)

func main() {
	if err := commands.Root(commands.DefaultEnv()).Execute(os.Args[1:]); err != nil {
		// Commands that already reported their outcome (a rejected
		// ticket) return an error carrying only the exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
