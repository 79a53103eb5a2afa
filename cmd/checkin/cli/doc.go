// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the checkin
// binary: a tree of [Command] values with pflag flag sets, help
// output, typo suggestions for commands and flags, and [ExitError]
// for commands whose non-zero exit is an expected outcome (a rejected
// ticket) rather than a failure.
package cli
