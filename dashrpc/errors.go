// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashrpc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
)

var (
	// ErrInvalidParam is returned when the caller provides an invalid
	// parameter to an RPC method, before any request is sent.
	ErrInvalidParam = errors.New("invalid param")

	// ErrClientShutdown is returned by calls made after Shutdown.
	ErrClientShutdown = errors.New("client has been shut down")
)

// Wallet-related error codes reported by dashd.  These mirror the bitcoind
// RPC error space; btcjson only names a subset of them.
const (
	// rpcWalletNotFound is returned for requests naming a wallet that is
	// not loaded and cannot be found on disk.
	rpcWalletNotFound btcjson.RPCErrorCode = -18

	// rpcWalletAlreadyLoaded is returned by loadwallet when the wallet is
	// already loaded.
	rpcWalletAlreadyLoaded btcjson.RPCErrorCode = -35
)

// ConnectionError describes a failure to reach the daemon at all: the
// process is not running, not yet listening, or refused the connection.
type ConnectionError struct {
	Host string
	Err  error
}

// Error satisfies the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("dashd unreachable at %s: %v", e.Host, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError describes an RPC call that did not complete within the
// client's configured timeout.  The daemon may or may not have executed the
// call; callers must not assume either.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

// Error satisfies the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc %s timed out after %v", e.Method, e.Timeout)
}

// IsConnectionError returns whether err indicates the daemon was
// unreachable.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsTimeoutError returns whether err indicates an elapsed call deadline.
func IsTimeoutError(err error) bool {
	var toErr *TimeoutError
	return errors.As(err, &toErr)
}

// RPCErr extracts the daemon-reported RPC error from err, if any.
func RPCErr(err error) (*btcjson.RPCError, bool) {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// IsWalletNotFound returns whether err is the daemon reporting that a named
// wallet is neither loaded nor present on disk.
func IsWalletNotFound(err error) bool {
	rpcErr, ok := RPCErr(err)
	return ok && rpcErr.Code == rpcWalletNotFound
}

// IsWalletAlreadyLoaded returns whether err is the daemon reporting that
// loadwallet was called for a wallet that is already loaded.
func IsWalletAlreadyLoaded(err error) bool {
	rpcErr, ok := RPCErr(err)
	if !ok {
		return false
	}
	if rpcErr.Code == rpcWalletAlreadyLoaded {
		return true
	}
	// Older dashd releases report this through the generic wallet code.
	return rpcErr.Code == btcjson.ErrRPCWallet &&
		strings.Contains(strings.ToLower(rpcErr.Message), "already loaded")
}

// IsWalletExists returns whether err is the daemon reporting that
// createwallet was called for a wallet that already exists on disk.
func IsWalletExists(err error) bool {
	rpcErr, ok := RPCErr(err)
	if !ok {
		return false
	}
	return rpcErr.Code == btcjson.ErrRPCWallet &&
		strings.Contains(strings.ToLower(rpcErr.Message), "already exists")
}
