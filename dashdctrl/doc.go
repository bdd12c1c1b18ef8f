// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package dashdctrl manages the lifecycle of a single dashd process bound to a
data directory.

A Controller moves through the states Stopped, Starting, Ready, Stopping and
back to Stopped.  Starting transitions to Failed when the daemon does not
become RPC-responsive within the configured deadline, and Ready transitions
to Crashed when the process exits without Stop having been called.  The
controller never restarts a crashed daemon on its own; that policy belongs
to the caller.

The data directory is exclusively owned by the controller between Start and
Stop.  Stop is idempotent and must run on every exit path so the daemon
process cannot outlive its owner; WithInstance wraps that contract.
*/
package dashdctrl
