// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dashpay/regtestgen/dashrpc"
)

// consolidateFee is the fixed fee paid by the manual consolidation
// transaction.
const consolidateFee = btcutil.Amount(10000)

// Stats summarizes what an executor run actually did on chain.
type Stats struct {
	BlocksMined          int64
	TransactionsCreated  int64
	WalletCoinbaseBlocks int64
	EventsExecuted       int
	FinalHeight          int64
}

// Executor replays a plan against a live daemon.  Events run strictly in
// order; every mutating call is verified before the next event starts, so a
// failure pinpoints exactly how far the dataset got.
type Executor struct {
	chain     Chain
	plan      *Plan
	interrupt <-chan struct{}

	miningAddr string
	// addrs holds the pre-derived external addresses per test wallet,
	// indexed by derivation index.  The consolidation event appends one
	// more entry when it runs.
	addrs [][]string

	stats Stats
}

// NewExecutor prepares an executor for the given plan.  interrupt may be
// nil; when it is closed mid-run the executor stops between events and
// returns ErrInterrupted.
func NewExecutor(chain Chain, plan *Plan, interrupt <-chan struct{}) *Executor {
	return &Executor{
		chain:     chain,
		plan:      plan,
		interrupt: interrupt,
		addrs:     make([][]string, len(plan.Wallets)),
	}
}

// Stats returns the run statistics gathered so far.
func (e *Executor) Stats() Stats {
	return e.stats
}

// Addresses returns the derived external addresses of test wallet w, in
// derivation order.  Only valid after Run.
func (e *Executor) Addresses(w int) []string {
	return e.addrs[w]
}

func (e *Executor) interrupted() bool {
	select {
	case <-e.interrupt:
		return true
	default:
		return false
	}
}

// Run creates the wallets, derives their addresses and executes every plan
// event in order.
func (e *Executor) Run() error {
	if err := e.setupFaucet(); err != nil {
		return err
	}
	for i := range e.plan.Wallets {
		if err := e.setupWallet(i); err != nil {
			return err
		}
	}

	for i, ev := range e.plan.Events {
		if e.interrupted() {
			return ErrInterrupted
		}
		if err := e.runEvent(ev); err != nil {
			return &EventError{
				Index:  i,
				Height: ev.Height,
				Kind:   ev.Kind,
				Err:    err,
			}
		}
		e.stats.EventsExecuted++
	}

	height, err := e.chain.GetBlockCount()
	if err != nil {
		return err
	}
	if height != e.plan.FinalHeight {
		return fmt.Errorf("final height %d, want %d", height,
			e.plan.FinalHeight)
	}
	e.stats.FinalHeight = height
	return nil
}

// setupFaucet creates or loads the mining wallet and picks its reward
// address.
func (e *Executor) setupFaucet() error {
	name := e.plan.Params.FaucetWallet

	err := e.chain.CreateWallet(name)
	switch {
	case err == nil:
	case dashrpc.IsWalletExists(err):
		if lerr := e.chain.LoadWallet(name); lerr != nil &&
			!dashrpc.IsWalletAlreadyLoaded(lerr) {
			return lerr
		}
	default:
		return fmt.Errorf("create faucet wallet: %w", err)
	}

	addr, err := e.chain.GetNewAddress(name, "mining")
	if err != nil {
		return err
	}
	e.miningAddr = addr
	log.Debugf("Faucet wallet %q mining to %s", name, addr)
	return nil
}

// setupWallet creates test wallet w as a blank wallet, installs its planned
// mnemonic and derives the full external address range, verifying every
// derivation index along the way.
func (e *Executor) setupWallet(w int) error {
	wp := e.plan.Wallets[w]

	err := e.chain.CreateBlankWallet(wp.Name)
	switch {
	case err == nil:
		if err := e.chain.UpgradeToHD(wp.Name, wp.Mnemonic); err != nil {
			return fmt.Errorf("set mnemonic on %q: %w", wp.Name, err)
		}

	case dashrpc.IsWalletExists(err):
		if lerr := e.chain.LoadWallet(wp.Name); lerr != nil &&
			!dashrpc.IsWalletAlreadyLoaded(lerr) {
			return lerr
		}
		info, ierr := e.chain.GetWalletInfo(wp.Name)
		if ierr != nil {
			return ierr
		}
		if info.TxCount > 0 {
			return fmt.Errorf("wallet %q already exists with %d "+
				"transactions; refusing to reuse it", wp.Name,
				info.TxCount)
		}
		// Empty leftover wallet: install the mnemonic if it does not
		// have one yet.  Index verification below catches anything
		// out of line.
		if herr := e.chain.UpgradeToHD(wp.Name, wp.Mnemonic); herr != nil {
			log.Warnf("Wallet %q: keeping existing HD seed: %v",
				wp.Name, herr)
		}

	default:
		return fmt.Errorf("create wallet %q: %w", wp.Name, err)
	}

	addrs := make([]string, 0, e.plan.Params.NumAddresses)
	for i := 0; i < e.plan.Params.NumAddresses; i++ {
		addr, err := e.deriveVerified(wp.Name, i,
			fmt.Sprintf("addr_%d", i))
		if err != nil {
			return err
		}
		addrs = append(addrs, addr)
	}
	e.addrs[w] = addrs
	log.Infof("Wallet %q ready with %d addresses", wp.Name, len(addrs))
	return nil
}

// deriveVerified derives the next external address of the wallet and checks
// it landed on the expected derivation index.
func (e *Executor) deriveVerified(wallet string, want int, label string) (string, error) {
	addr, err := e.chain.GetNewAddress(wallet, label)
	if err != nil {
		return "", err
	}
	info, err := e.chain.GetAddressInfo(wallet, addr)
	if err != nil {
		return "", err
	}
	got, err := hdKeyPathIndex(info.HDKeyPath)
	if err != nil {
		return "", fmt.Errorf("wallet %s address %s: %w", wallet,
			addr, err)
	}
	if got != want {
		return "", &AddressCollisionError{
			Wallet:    wallet,
			WantIndex: want,
			GotIndex:  got,
			Address:   addr,
		}
	}
	return addr, nil
}

// hdKeyPathIndex extracts the trailing child index from a derivation path
// such as "m/44'/1'/0'/0/7".
func hdKeyPathIndex(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("address has no HD key path")
	}
	parts := strings.Split(path, "/")
	last := strings.TrimSuffix(parts[len(parts)-1], "'")
	idx, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("malformed HD key path %q", path)
	}
	return idx, nil
}

func (e *Executor) runEvent(ev ChainEvent) error {
	height, err := e.chain.GetBlockCount()
	if err != nil {
		return err
	}
	if height != ev.Height {
		return fmt.Errorf("chain at height %d, plan expects %d",
			height, ev.Height)
	}

	switch ev.Kind {
	case EventMine:
		return e.runMine(ev)
	case EventFaucetSplit:
		return e.runFaucetSplit(ev)
	case EventSend:
		return e.runSend(ev)
	case EventSendMany:
		return e.runSendMany(ev)
	case EventSpend:
		return e.runSpend(ev)
	case EventConsolidate:
		return e.runConsolidate(ev)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

func (e *Executor) runMine(ev ChainEvent) error {
	addr := e.miningAddr
	if ev.MineTo != mineToFaucet {
		addr = e.addrs[ev.MineTo][0]
	}

	hashes, err := e.chain.GenerateToAddress(ev.Blocks, addr)
	if err != nil {
		return err
	}
	if int64(len(hashes)) != ev.Blocks {
		return fmt.Errorf("mined %d blocks, want %d", len(hashes),
			ev.Blocks)
	}

	e.stats.BlocksMined += ev.Blocks
	if ev.MineTo != mineToFaucet {
		e.stats.WalletCoinbaseBlocks += ev.Blocks
	}
	log.Debugf("Mined %d blocks to %s (height %d)", ev.Blocks, addr,
		ev.Height+ev.Blocks)
	return nil
}

func (e *Executor) runFaucetSplit(ev ChainEvent) error {
	faucet := e.plan.Params.FaucetWallet

	outputs := make(map[string]btcutil.Amount, ev.SplitOutputs)
	for i := 0; i < ev.SplitOutputs; i++ {
		addr, err := e.chain.GetNewAddress(faucet, "split")
		if err != nil {
			return err
		}
		outputs[addr] = ev.Amount
	}

	txid, err := e.chain.SendMany(faucet, outputs)
	if err != nil {
		return err
	}
	e.stats.TransactionsCreated++
	log.Debugf("Split faucet into %d outputs of %v (%s)", ev.SplitOutputs,
		ev.Amount, txid)
	return nil
}

func (e *Executor) runSend(ev ChainEvent) error {
	addr := e.addrs[ev.Wallet][ev.AddrIndex]
	txid, err := e.chain.SendToAddress(e.plan.Params.FaucetWallet, addr,
		ev.Amount)
	if err != nil {
		return err
	}
	e.stats.TransactionsCreated++
	log.Debugf("Sent %v to %s/%d (%s)", ev.Amount,
		e.plan.Wallets[ev.Wallet].Name, ev.AddrIndex, txid)
	return nil
}

func (e *Executor) runSendMany(ev ChainEvent) error {
	outputs := make(map[string]btcutil.Amount, len(ev.Outputs))
	for _, out := range ev.Outputs {
		outputs[e.addrs[ev.Wallet][out.AddrIndex]] = out.Amount
	}

	txid, err := e.chain.SendMany(e.plan.Params.FaucetWallet, outputs)
	if err != nil {
		return err
	}
	e.stats.TransactionsCreated++
	log.Debugf("Batched payment of %d outputs to %s (%s)",
		len(ev.Outputs), e.plan.Wallets[ev.Wallet].Name, txid)
	return nil
}

func (e *Executor) runSpend(ev ChainEvent) error {
	dest, err := e.chain.GetNewAddress(e.plan.Params.FaucetWallet,
		"wallet-spend")
	if err != nil {
		return err
	}
	txid, err := e.chain.SendToAddress(e.plan.Wallets[ev.Wallet].Name,
		dest, ev.Amount)
	if err != nil {
		return err
	}
	e.stats.TransactionsCreated++
	log.Debugf("Wallet %s spent %v back to faucet (%s)",
		e.plan.Wallets[ev.Wallet].Name, ev.Amount, txid)
	return nil
}

// runConsolidate merges the two smallest spendable UTXOs of the wallet into
// a single output at the next fresh derivation index.  The plan tags that
// index with a role, so a wallet that cannot fund the consolidation is an
// error rather than a skip.
func (e *Executor) runConsolidate(ev ChainEvent) error {
	wallet := e.plan.Wallets[ev.Wallet].Name

	unspent, err := e.chain.ListUnspent(wallet, 1, 9999999)
	if err != nil {
		return err
	}
	spendable := unspent[:0]
	for _, u := range unspent {
		if u.Spendable {
			spendable = append(spendable, u)
		}
	}
	if len(spendable) < 2 {
		return fmt.Errorf("wallet %s has %d spendable UTXOs, need 2 "+
			"to consolidate", wallet, len(spendable))
	}

	sort.Slice(spendable, func(i, j int) bool {
		if spendable[i].Amount != spendable[j].Amount {
			return spendable[i].Amount < spendable[j].Amount
		}
		if spendable[i].TxID != spendable[j].TxID {
			return spendable[i].TxID < spendable[j].TxID
		}
		return spendable[i].Vout < spendable[j].Vout
	})

	var total btcutil.Amount
	inputs := make([]dashrpc.TxInput, 2)
	for i, u := range spendable[:2] {
		amt, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return err
		}
		total += amt
		inputs[i] = dashrpc.TxInput{TxID: u.TxID, Vout: u.Vout}
	}
	if total <= consolidateFee {
		return fmt.Errorf("wallet %s smallest UTXOs total %v, cannot "+
			"cover the %v consolidation fee", wallet, total,
			consolidateFee)
	}

	dest, err := e.deriveVerified(wallet, e.plan.Params.NumAddresses,
		"consolidated")
	if err != nil {
		return err
	}
	e.addrs[ev.Wallet] = append(e.addrs[ev.Wallet], dest)

	raw, err := e.chain.CreateRawTransaction(inputs,
		map[string]btcutil.Amount{dest: total - consolidateFee})
	if err != nil {
		return err
	}
	signed, complete, err := e.chain.SignRawTransactionWithWallet(wallet, raw)
	if err != nil {
		return err
	}
	if !complete {
		return fmt.Errorf("consolidation signing incomplete")
	}
	txid, err := e.chain.SendRawTransaction(signed)
	if err != nil {
		return err
	}
	e.stats.TransactionsCreated++
	log.Debugf("Wallet %s consolidated 2 UTXOs into %s (%s)", wallet,
		dest, txid)
	return nil
}
