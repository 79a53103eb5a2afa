// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the process with Code without printing an error
// line. A command returns it after writing its own output, when the
// non-zero exit is a meaningful outcome: a fake or wrong-event ticket
// at the door exits 1 so scripts can branch on it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this method to tell
// a handled exit from an error it should print.
func (e *ExitError) ExitCode() int {
	return e.Code
}
