// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dashpay/regtestgen/dashrpc"
)

// Chain is the daemon surface the executor drives.  *dashrpc.Client
// satisfies it; tests substitute an in-memory fake.
type Chain interface {
	GetBlockCount() (int64, error)
	GenerateToAddress(numBlocks int64, address string) ([]*chainhash.Hash, error)

	CreateWallet(name string) error
	CreateBlankWallet(name string) error
	UpgradeToHD(wallet, mnemonic string) error
	LoadWallet(name string) error
	GetWalletInfo(wallet string) (*dashrpc.WalletInfo, error)

	GetNewAddress(wallet, label string) (string, error)
	GetAddressInfo(wallet, address string) (*dashrpc.AddressInfo, error)

	SendToAddress(wallet, address string, amount btcutil.Amount) (*chainhash.Hash, error)
	SendMany(wallet string, amounts map[string]btcutil.Amount) (*chainhash.Hash, error)
	ListUnspent(wallet string, minConf, maxConf int64) ([]dashrpc.Unspent, error)

	CreateRawTransaction(inputs []dashrpc.TxInput, outputs map[string]btcutil.Amount) (string, error)
	SignRawTransactionWithWallet(wallet, rawTx string) (string, bool, error)
	SendRawTransaction(rawTx string) (*chainhash.Hash, error)
}

// Compile-time check that the RPC client implements the executor surface.
var _ Chain = (*dashrpc.Client)(nil)
