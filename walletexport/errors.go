// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletexport

import (
	"errors"
	"fmt"
)

// WalletNotFoundError is returned when a requested wallet is neither loaded
// nor present in the daemon wallet directory.
type WalletNotFoundError struct {
	Wallet string
}

// Error satisfies the error interface.
func (e *WalletNotFoundError) Error() string {
	return fmt.Sprintf("wallet %q not found", e.Wallet)
}

// IsWalletNotFound reports whether err indicates a missing wallet.
func IsWalletNotFound(err error) bool {
	var notFound *WalletNotFoundError
	return errors.As(err, &notFound)
}

// WriteError is returned when the export file cannot be written.  The
// wallet data itself was gathered fine.
type WriteError struct {
	Path string
	Err  error
}

// Error satisfies the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write export %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}
