// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned when a run is aborted by the caller's
// interrupt channel.  The daemon has still been stopped by the time Run
// returns.
var ErrInterrupted = errors.New("generation interrupted")

// InvalidHeightError is returned when the requested target height is below
// the minimum needed to exercise coinbase maturity.  It is reported before
// any daemon interaction.
type InvalidHeightError struct {
	Requested int64
	Minimum   int64
}

// Error satisfies the error interface.
func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf("target height %d below minimum %d "+
		"(coinbase maturity requirement)", e.Requested, e.Minimum)
}

// AddressCollisionError is returned when a planned derivation index does
// not match what the daemon actually derives, meaning the wallet has been
// used before (for example by a previous run against the same data
// directory).  Continuing would silently break the index placement the
// dataset exists to guarantee, so this is always fatal.
type AddressCollisionError struct {
	Wallet    string
	WantIndex int
	GotIndex  int
	Address   string
}

// Error satisfies the error interface.
func (e *AddressCollisionError) Error() string {
	return fmt.Sprintf("wallet %s: address %s derived at index %d, "+
		"want %d (wallet reused across runs?)", e.Wallet, e.Address,
		e.GotIndex, e.WantIndex)
}

// EventError wraps a failure while executing one chain event.  Index is the
// position within the plan, Height the chain height the plan expected before
// the event.
type EventError struct {
	Index  int
	Height int64
	Kind   EventKind
	Err    error
}

// Error satisfies the error interface.
func (e *EventError) Error() string {
	return fmt.Sprintf("event %d (%v at height %d): %v", e.Index, e.Kind,
		e.Height, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EventError) Unwrap() error {
	return e.Err
}
