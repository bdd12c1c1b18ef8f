// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package walletexport serializes daemon wallet state to JSON fixture files.

Each wallet becomes one self-contained document holding its mnemonic,
balance, full transaction history and current UTXO set, plus the derived
addresses annotated with the edge-case roles the generation plan assigned
them.  Files are written atomically (temp file plus rename) so a consumer
never observes a partial export, and wallets export independently: one
broken wallet is reported in its result without aborting the rest.
*/
package walletexport
