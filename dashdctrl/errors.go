// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashdctrl

import (
	"errors"
	"fmt"
)

// AlreadyRunningError is returned by Start when a live dashd process is
// already bound to the requested data directory.
type AlreadyRunningError struct {
	DataDir string
	PID     int
}

// Error satisfies the error interface.
func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("dashd already running for %s (pid %d)", e.DataDir,
		e.PID)
}

// StartFailedError is returned by Start when the daemon could not be
// launched or did not become RPC-responsive within the ready deadline.  The
// spawned process, if any, has been terminated.
type StartFailedError struct {
	DataDir string
	Err     error
}

// Error satisfies the error interface.
func (e *StartFailedError) Error() string {
	return fmt.Sprintf("dashd failed to start for %s: %v", e.DataDir, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StartFailedError) Unwrap() error {
	return e.Err
}

// CrashedError is returned when the daemon process exited while it was
// expected to be running.
type CrashedError struct {
	DataDir string
	Err     error
}

// Error satisfies the error interface.
func (e *CrashedError) Error() string {
	return fmt.Sprintf("dashd crashed for %s: %v", e.DataDir, e.Err)
}

// Unwrap returns the process exit error.
func (e *CrashedError) Unwrap() error {
	return e.Err
}

// IsAlreadyRunning returns whether err reports a daemon already bound to the
// data directory.
func IsAlreadyRunning(err error) bool {
	var target *AlreadyRunningError
	return errors.As(err, &target)
}

// IsCrashed returns whether err reports an unexpected daemon exit.
func IsCrashed(err error) bool {
	var target *CrashedError
	return errors.As(err, &target)
}
