// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"fmt"
	"sort"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dashpay/regtestgen/dashrpc"
	"github.com/stretchr/testify/require"
)

// fakeWallet is the in-memory wallet state behind fakeChain.
type fakeWallet struct {
	loaded    bool
	hasHD     bool
	mnemonic  string
	nextIndex int
	addrIndex map[string]int
	txCount   int64
	utxos     []dashrpc.Unspent
}

// fakeChain is an in-memory Chain and WalletReader implementation.  Sends
// credit the receiving wallet with a confirmed UTXO so downstream events
// (spends, consolidation) have material to work with.
type fakeChain struct {
	height    int64
	wallets   map[string]*fakeWallet
	addrOwner map[string]string
	txCounter int

	rawTxs      map[string][]dashrpc.TxInput
	sentRaw     int
	walletMined map[string]int64

	// Failure injection.
	generateErr error
	listTxErr   map[string]error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		wallets:     make(map[string]*fakeWallet),
		addrOwner:   make(map[string]string),
		rawTxs:      make(map[string][]dashrpc.TxInput),
		walletMined: make(map[string]int64),
	}
}

func (f *fakeChain) newTxid() *chainhash.Hash {
	f.txCounter++
	hash, err := chainhash.NewHashFromStr(fmt.Sprintf("%064x", f.txCounter))
	if err != nil {
		panic(err)
	}
	return hash
}

func (f *fakeChain) wallet(name string) (*fakeWallet, error) {
	w, ok := f.wallets[name]
	if !ok {
		return nil, &btcjson.RPCError{
			Code:    -18,
			Message: fmt.Sprintf("Wallet %s not found.", name),
		}
	}
	return w, nil
}

func (f *fakeChain) GetBlockCount() (int64, error) {
	return f.height, nil
}

func (f *fakeChain) GenerateToAddress(numBlocks int64, address string) ([]*chainhash.Hash, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	f.height += numBlocks
	if owner, ok := f.addrOwner[address]; ok {
		f.walletMined[owner] += numBlocks
	}
	hashes := make([]*chainhash.Hash, numBlocks)
	for i := range hashes {
		hashes[i] = f.newTxid()
	}
	return hashes, nil
}

func (f *fakeChain) createWallet(name string, hd bool) error {
	if _, ok := f.wallets[name]; ok {
		return &btcjson.RPCError{
			Code:    -4,
			Message: fmt.Sprintf("Wallet %s already exists.", name),
		}
	}
	f.wallets[name] = &fakeWallet{
		loaded:    true,
		hasHD:     hd,
		addrIndex: make(map[string]int),
	}
	return nil
}

func (f *fakeChain) CreateWallet(name string) error {
	return f.createWallet(name, true)
}

func (f *fakeChain) CreateBlankWallet(name string) error {
	return f.createWallet(name, false)
}

func (f *fakeChain) UpgradeToHD(wallet, mnemonic string) error {
	w, err := f.wallet(wallet)
	if err != nil {
		return err
	}
	if w.hasHD {
		return &btcjson.RPCError{
			Code:    -4,
			Message: "Already have an HD wallet",
		}
	}
	w.hasHD = true
	w.mnemonic = mnemonic
	return nil
}

func (f *fakeChain) LoadWallet(name string) error {
	w, err := f.wallet(name)
	if err != nil {
		return err
	}
	if w.loaded {
		return &btcjson.RPCError{
			Code:    -35,
			Message: fmt.Sprintf("Wallet %s is already loaded.", name),
		}
	}
	w.loaded = true
	return nil
}

func (f *fakeChain) GetWalletInfo(wallet string) (*dashrpc.WalletInfo, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	return &dashrpc.WalletInfo{WalletName: wallet, TxCount: w.txCount}, nil
}

func (f *fakeChain) GetNewAddress(wallet, label string) (string, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return "", err
	}
	addr := fmt.Sprintf("%s-addr-%d", wallet, w.nextIndex)
	w.addrIndex[addr] = w.nextIndex
	w.nextIndex++
	f.addrOwner[addr] = wallet
	return addr, nil
}

func (f *fakeChain) GetAddressInfo(wallet, address string) (*dashrpc.AddressInfo, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	idx, ok := w.addrIndex[address]
	if !ok {
		return nil, &btcjson.RPCError{Code: -5, Message: "unknown address"}
	}
	return &dashrpc.AddressInfo{
		Address:   address,
		IsMine:    true,
		HDKeyPath: fmt.Sprintf("m/44'/1'/0'/0/%d", idx),
	}, nil
}

// credit records a confirmed UTXO on the wallet owning addr, if any.
func (f *fakeChain) credit(addr string, amount btcutil.Amount, txid string, vout uint32) {
	owner, ok := f.addrOwner[addr]
	if !ok {
		return
	}
	w := f.wallets[owner]
	w.txCount++
	w.utxos = append(w.utxos, dashrpc.Unspent{
		TxID:          txid,
		Vout:          vout,
		Address:       addr,
		Amount:        amount.ToBTC(),
		Confirmations: 1,
		Spendable:     true,
	})
}

func (f *fakeChain) SendToAddress(wallet, address string, amount btcutil.Amount) (*chainhash.Hash, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	w.txCount++
	txid := f.newTxid()
	f.credit(address, amount, txid.String(), 0)
	return txid, nil
}

func (f *fakeChain) SendMany(wallet string, amounts map[string]btcutil.Amount) (*chainhash.Hash, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	w.txCount++
	txid := f.newTxid()
	var vout uint32
	for addr, amt := range amounts {
		f.credit(addr, amt, txid.String(), vout)
		vout++
	}
	return txid, nil
}

func (f *fakeChain) ListUnspent(wallet string, minConf, maxConf int64) ([]dashrpc.Unspent, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	return append([]dashrpc.Unspent(nil), w.utxos...), nil
}

func (f *fakeChain) CreateRawTransaction(inputs []dashrpc.TxInput, outputs map[string]btcutil.Amount) (string, error) {
	raw := fmt.Sprintf("raw-%d", len(f.rawTxs))
	f.rawTxs[raw] = inputs
	return raw, nil
}

func (f *fakeChain) SignRawTransactionWithWallet(wallet, rawTx string) (string, bool, error) {
	if _, ok := f.rawTxs[rawTx]; !ok {
		return "", false, fmt.Errorf("unknown raw tx %q", rawTx)
	}
	return rawTx, true, nil
}

func (f *fakeChain) SendRawTransaction(rawTx string) (*chainhash.Hash, error) {
	if _, ok := f.rawTxs[rawTx]; !ok {
		return nil, fmt.Errorf("unknown raw tx %q", rawTx)
	}
	f.sentRaw++
	return f.newTxid(), nil
}

func (f *fakeChain) ListWalletDir() ([]string, error) {
	names := make([]string, 0, len(f.wallets))
	for name := range f.wallets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeChain) ListWallets() ([]string, error) {
	var names []string
	for name, w := range f.wallets {
		if w.loaded {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeChain) DumpHDInfo(wallet string) (*dashrpc.HDInfo, error) {
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	if !w.hasHD {
		return nil, &btcjson.RPCError{
			Code:    -4,
			Message: "This wallet is not a HD wallet.",
		}
	}
	return &dashrpc.HDInfo{Mnemonic: w.mnemonic}, nil
}

func (f *fakeChain) ListTransactions(wallet string, count int64) ([]dashrpc.WalletTx, error) {
	if err := f.listTxErr[wallet]; err != nil {
		return nil, err
	}
	w, err := f.wallet(wallet)
	if err != nil {
		return nil, err
	}
	txs := make([]dashrpc.WalletTx, 0, len(w.utxos))
	for _, u := range w.utxos {
		txs = append(txs, dashrpc.WalletTx{
			TxID:          u.TxID,
			Address:       u.Address,
			Category:      "receive",
			Amount:        u.Amount,
			Confirmations: u.Confirmations,
		})
	}
	return txs, nil
}

func buildTestPlan(t *testing.T, target int64) *Plan {
	t.Helper()

	params := DefaultParams(target)
	params.Seed = 7
	plan, err := BuildPlan(params)
	require.NoError(t, err)
	return plan
}

func TestExecutorRunsPlan(t *testing.T) {
	plan := buildTestPlan(t, 200)
	chain := newFakeChain()
	exec := NewExecutor(chain, plan, nil)

	require.NoError(t, exec.Run())

	stats := exec.Stats()
	require.Equal(t, int64(200), stats.FinalHeight)
	require.Equal(t, int64(200), stats.BlocksMined)
	require.Equal(t, int64(200), chain.height)
	require.Equal(t, len(plan.Events), stats.EventsExecuted)
	require.Positive(t, stats.TransactionsCreated)

	// Wallet coinbase blocks must have been mined to the wallet's first
	// address, not the faucet.
	require.Equal(t, stats.WalletCoinbaseBlocks, chain.walletMined["wallet"])
	require.Positive(t, stats.WalletCoinbaseBlocks)

	// The wallet was set up blank and given the planned mnemonic.
	w := chain.wallets["wallet"]
	require.True(t, w.hasHD)
	require.Equal(t, plan.Wallets[0].Mnemonic, w.mnemonic)

	// Consolidation ran, deriving one address past the planned range.
	require.Equal(t, 1, chain.sentRaw)
	require.Len(t, exec.Addresses(0), plan.Params.NumAddresses+1)
}

func TestExecutorConsolidationPicksSmallest(t *testing.T) {
	plan := buildTestPlan(t, 200)
	chain := newFakeChain()
	exec := NewExecutor(chain, plan, nil)
	require.NoError(t, exec.Run())

	require.Len(t, chain.rawTxs, 1)
	for _, inputs := range chain.rawTxs {
		require.Len(t, inputs, 2)
		// The dust output is the smallest UTXO in the plan, so it must
		// be one of the consolidation inputs.
		var amounts []float64
		for _, u := range chain.wallets["wallet"].utxos {
			for _, in := range inputs {
				if in.TxID == u.TxID && in.Vout == u.Vout {
					amounts = append(amounts, u.Amount)
				}
			}
		}
		require.Len(t, amounts, 2)
		require.Contains(t, amounts, btcutil.Amount(dustAmount).ToBTC())
	}
}

// A wallet that cannot fund its consolidation must fail the run: the plan
// has already tagged the consolidation target address, so skipping would
// leave a role with no matching transaction.
func TestExecutorConsolidateRequiresUTXOs(t *testing.T) {
	plan := buildTestPlan(t, 120)
	plan.Events = []ChainEvent{{Kind: EventConsolidate, Wallet: 0}}

	chain := newFakeChain()
	exec := NewExecutor(chain, plan, nil)
	err := exec.Run()

	var evErr *EventError
	require.ErrorAs(t, err, &evErr)
	require.Equal(t, EventConsolidate, evErr.Kind)
	require.Contains(t, err.Error(), "consolidate")
}

func TestExecutorHeightMismatch(t *testing.T) {
	plan := buildTestPlan(t, 120)
	chain := newFakeChain()
	chain.height = 5

	exec := NewExecutor(chain, plan, nil)
	err := exec.Run()

	var evErr *EventError
	require.ErrorAs(t, err, &evErr)
	require.Equal(t, 0, evErr.Index)
}

func TestExecutorRefusesUsedWallet(t *testing.T) {
	plan := buildTestPlan(t, 120)
	chain := newFakeChain()
	require.NoError(t, chain.CreateWallet("wallet"))
	chain.wallets["wallet"].txCount = 3

	exec := NewExecutor(chain, plan, nil)
	err := exec.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing to reuse")
}

func TestExecutorAddressCollision(t *testing.T) {
	plan := buildTestPlan(t, 120)
	chain := newFakeChain()

	// An empty leftover wallet whose next derivation index is already
	// past zero.
	require.NoError(t, chain.CreateBlankWallet("wallet"))
	chain.wallets["wallet"].nextIndex = 4

	exec := NewExecutor(chain, plan, nil)
	err := exec.Run()

	var collision *AddressCollisionError
	require.ErrorAs(t, err, &collision)
	require.Equal(t, "wallet", collision.Wallet)
	require.Equal(t, 0, collision.WantIndex)
	require.Equal(t, 4, collision.GotIndex)
}

func TestExecutorInterrupt(t *testing.T) {
	plan := buildTestPlan(t, 120)
	chain := newFakeChain()

	interrupt := make(chan struct{})
	close(interrupt)

	exec := NewExecutor(chain, plan, interrupt)
	require.ErrorIs(t, exec.Run(), ErrInterrupted)
	// Nothing mined: the run stopped before the first event.
	require.Zero(t, chain.height)
}
