// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"fmt"
)

const (
	// CoinbaseMaturity is the number of confirmations a coinbase output
	// needs before it is spendable on regtest.
	CoinbaseMaturity = 100

	// MinTargetHeight is the lowest target height a plan accepts.  The
	// bootstrap phase mines past coinbase maturity and still needs room
	// for at least a handful of wallet transactions on top.
	MinTargetHeight = 120

	// defaultGapLimit matches the lookahead window SPV wallet recovery
	// implementations use by default (BIP 44).
	defaultGapLimit = 30

	// defaultFilterBatchSize matches the compact-filter header batch size
	// light clients fetch in one request.
	defaultFilterBatchSize = 5000

	defaultNumWallets   = 1
	defaultNumAddresses = 50
	defaultFaucetWallet = "default"

	// maxMineBatch caps how many blocks a single generatetoaddress call
	// requests so the daemon stays responsive.
	maxMineBatch = 500

	// periodicInterval is how often, in blocks, the bulk phase scatters a
	// wallet transaction so long synced ranges are never empty.
	periodicInterval = 1000
)

// Params configures a generation plan.  The zero value is not usable; start
// from DefaultParams.
type Params struct {
	// TargetHeight is the exact chain height the run finishes at.  Must
	// be at least MinTargetHeight.
	TargetHeight int64

	// NumWallets is how many test wallets to create alongside the faucet.
	NumWallets int

	// NumAddresses is how many receive addresses each test wallet derives
	// up front.  Must leave room past the gap-limit indices.
	NumAddresses int

	// GapLimit is the wallet recovery lookahead the plan places addresses
	// around.  Indices GapLimit-1, GapLimit and GapLimit+1 all receive
	// funds so recovery scans can be validated at the boundary.
	GapLimit int

	// FilterBatchSize is the compact-filter batch size the plan places
	// transactions just before multiples of.
	FilterBatchSize int64

	// Seed drives mnemonic derivation.  The same seed always produces the
	// same wallet mnemonics, and therefore the same addresses.
	Seed int64

	// FaucetWallet is the name of the mining/funding wallet.
	FaucetWallet string
}

// DefaultParams returns the canonical parameter set for the given target
// height.
func DefaultParams(targetHeight int64) Params {
	return Params{
		TargetHeight:    targetHeight,
		NumWallets:      defaultNumWallets,
		NumAddresses:    defaultNumAddresses,
		GapLimit:        defaultGapLimit,
		FilterBatchSize: defaultFilterBatchSize,
		FaucetWallet:    defaultFaucetWallet,
	}
}

// validate checks the parameter set, applying defaults for unset optional
// fields, and returns the effective parameters.
func (p Params) validate() (Params, error) {
	if p.TargetHeight < MinTargetHeight {
		return p, &InvalidHeightError{
			Requested: p.TargetHeight,
			Minimum:   MinTargetHeight,
		}
	}
	if p.NumWallets <= 0 {
		p.NumWallets = defaultNumWallets
	}
	if p.NumAddresses <= 0 {
		p.NumAddresses = defaultNumAddresses
	}
	if p.GapLimit <= 0 {
		p.GapLimit = defaultGapLimit
	}
	if p.FilterBatchSize <= 0 {
		p.FilterBatchSize = defaultFilterBatchSize
	}
	if p.FaucetWallet == "" {
		p.FaucetWallet = defaultFaucetWallet
	}

	// The beyond-gap phase reaches GapLimit+5 and the bulk phase consumes
	// the top ten indices for filter boundary sends.
	if p.NumAddresses < p.GapLimit+6 {
		return p, fmt.Errorf("num addresses %d too small for gap "+
			"limit %d (need at least %d)", p.NumAddresses,
			p.GapLimit, p.GapLimit+6)
	}
	return p, nil
}

// walletName returns the deterministic name of test wallet i.  The first
// wallet is plain "wallet" so the default dataset keeps stable file names;
// additional wallets are numbered.
func (p Params) walletName(i int) string {
	if i == 0 {
		return "wallet"
	}
	return fmt.Sprintf("wallet%d", i+1)
}

// boundaryAddrStart is the first derivation index used for filter-boundary
// sends.  Keeping these at the top of the derived range avoids colliding
// with the fixed indices the earlier phases target.
func (p Params) boundaryAddrStart() int {
	return p.NumAddresses - 10
}
