// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals defines the signals to catch in order to do a proper
// shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptListener listens for SIGINT (Ctrl+C) and SIGTERM signals.  It
// returns a channel that is closed when a signal is received.  A second
// signal exits immediately.
func interruptListener() <-chan struct{} {
	c := make(chan struct{})

	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		sig := <-interruptChannel
		mainLog.Infof("Received signal (%s).  Shutting down...", sig)
		close(c)

		// The run stops the daemon on its way out; a repeated signal
		// skips that and exits hard.
		sig = <-interruptChannel
		mainLog.Infof("Received signal (%s).  Exiting immediately.", sig)
		os.Exit(1)
	}()

	return c
}
