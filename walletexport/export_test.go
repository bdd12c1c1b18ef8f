// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletexport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/dashpay/regtestgen/dashrpc"
	"github.com/stretchr/testify/require"
)

// fakeReader is an in-memory WalletReader.
type fakeReader struct {
	dir    []string
	loaded map[string]bool
	hd     map[string]string
	txs    map[string][]dashrpc.WalletTx
	utxos  map[string][]dashrpc.Unspent
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		loaded: make(map[string]bool),
		hd:     make(map[string]string),
		txs:    make(map[string][]dashrpc.WalletTx),
		utxos:  make(map[string][]dashrpc.Unspent),
	}
}

func (f *fakeReader) ListWalletDir() ([]string, error) {
	return append([]string(nil), f.dir...), nil
}

func (f *fakeReader) ListWallets() ([]string, error) {
	var names []string
	for name, on := range f.loaded {
		if on {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeReader) LoadWallet(name string) error {
	for _, have := range f.dir {
		if have == name {
			if f.loaded[name] {
				return &btcjson.RPCError{
					Code:    -35,
					Message: "Wallet is already loaded.",
				}
			}
			f.loaded[name] = true
			return nil
		}
	}
	return &btcjson.RPCError{
		Code:    -18,
		Message: fmt.Sprintf("Wallet %s not found.", name),
	}
}

func (f *fakeReader) DumpHDInfo(wallet string) (*dashrpc.HDInfo, error) {
	mnemonic, ok := f.hd[wallet]
	if !ok {
		return nil, &btcjson.RPCError{
			Code:    -4,
			Message: "This wallet is not a HD wallet.",
		}
	}
	return &dashrpc.HDInfo{Mnemonic: mnemonic}, nil
}

func (f *fakeReader) ListTransactions(wallet string, count int64) ([]dashrpc.WalletTx, error) {
	return append([]dashrpc.WalletTx(nil), f.txs[wallet]...), nil
}

func (f *fakeReader) ListUnspent(wallet string, minConf, maxConf int64) ([]dashrpc.Unspent, error) {
	return append([]dashrpc.Unspent(nil), f.utxos[wallet]...), nil
}

// seedWallet populates a wallet whose UTXO set is consistent with its
// history: every unspent output's transaction appears in the history.
func seedWallet(f *fakeReader, name string) {
	f.dir = append(f.dir, name)
	f.hd[name] = "abandon abandon abandon about"

	// Deliberately out of order, with one txid appearing twice (send and
	// receive sides of the same transaction).
	f.txs[name] = []dashrpc.WalletTx{
		{TxID: "bb", Category: "receive", Amount: 2.5, BlockHeight: 20, BlockIndex: 1, Time: 200},
		{TxID: "aa", Category: "receive", Amount: 0.5, BlockHeight: 10, BlockIndex: 1, Time: 100},
		{TxID: "cc", Category: "send", Amount: -1.0, BlockHeight: 30, BlockIndex: 2, Time: 300},
		{TxID: "cc", Category: "receive", Amount: 1.0, BlockHeight: 30, BlockIndex: 2, Time: 300},
	}
	f.utxos[name] = []dashrpc.Unspent{
		{TxID: "bb", Vout: 0, Address: "addr-b", Amount: 2.5, Confirmations: 5, Spendable: true},
		{TxID: "aa", Vout: 1, Address: "addr-a", Amount: 0.5, Confirmations: 15, Spendable: true},
		// Duplicate outpoint that must be collapsed.
		{TxID: "aa", Vout: 1, Address: "addr-a", Amount: 0.5, Confirmations: 15, Spendable: true},
	}
}

func TestExportWalletRecord(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "wallet")

	x := New(reader)
	x.SetAddresses("wallet", []AddressRecord{
		{Address: "addr-a", Index: 0, Roles: []string{"dust"}},
		{Address: "addr-b", Index: 1},
	})

	rec, err := x.ExportWallet("wallet")
	require.NoError(t, err)

	require.Equal(t, "wallet", rec.WalletName)
	require.Equal(t, "abandon abandon abandon about", rec.Mnemonic)
	require.Equal(t, 4, rec.TransactionCount)
	require.Equal(t, 3, rec.UniqueTransactionCount)
	require.Equal(t, 2, rec.UTXOCount)
	require.InDelta(t, 3.0, rec.Balance, 1e-9)
	require.Len(t, rec.Addresses, 2)

	// History sorted by height, then index, then txid, then category.
	var order []string
	for _, tx := range rec.Transactions {
		order = append(order, tx.TxID+"/"+tx.Category)
	}
	require.Equal(t, []string{
		"aa/receive", "bb/receive", "cc/receive", "cc/send",
	}, order)
}

// Every exported UTXO must reference a transaction present in the exported
// history, otherwise a consumer cannot replay how the output came to be.
func TestExportUTXOsCoveredByHistory(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "wallet")

	rec, err := New(reader).ExportWallet("wallet")
	require.NoError(t, err)

	history := make(map[string]bool)
	for _, tx := range rec.Transactions {
		history[tx.TxID] = true
	}
	for _, u := range rec.UTXOs {
		require.True(t, history[u.TxID],
			"UTXO %s:%d not in history", u.TxID, u.Vout)
	}
}

func TestExportDeterministic(t *testing.T) {
	dir := t.TempDir()

	write := func(sub string) []byte {
		reader := newFakeReader()
		seedWallet(reader, "wallet")
		rec, err := New(reader).ExportWallet("wallet")
		require.NoError(t, err)

		out := filepath.Join(dir, sub)
		require.NoError(t, os.MkdirAll(out, 0700))
		path, err := WriteRecord(out, rec)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}

	require.Equal(t, write("first"), write("second"))
}

func TestExportWalletNotFound(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "wallet")

	_, err := New(reader).ExportWallet("missing")
	require.True(t, IsWalletNotFound(err))
}

func TestExportAllIsolation(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "good")

	dir := t.TempDir()
	results, err := New(reader).ExportAll(dir, []string{"missing", "good"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "missing", results[0].Wallet)
	require.True(t, IsWalletNotFound(results[0].Err))

	require.Equal(t, "good", results[1].Wallet)
	require.NoError(t, results[1].Err)
	require.FileExists(t, results[1].Path)
}

func TestExportAllDiscoversWallets(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "b")
	seedWallet(reader, "a")

	dir := t.TempDir()
	results, err := New(reader).ExportAll(dir, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Discovery order is sorted for stable output.
	require.Equal(t, "a", results[0].Wallet)
	require.Equal(t, "b", results[1].Wallet)
}

func TestDiscoverWalletsFilesystemFallback(t *testing.T) {
	walletDir := t.TempDir()
	// Named wallet directories plus the unnamed default wallet.
	require.NoError(t, os.MkdirAll(filepath.Join(walletDir, "wallet"), 0700))
	require.NoError(t, os.WriteFile(
		filepath.Join(walletDir, "wallet", "wallet.dat"), nil, 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(walletDir, "empty"), 0700))
	require.NoError(t, os.WriteFile(
		filepath.Join(walletDir, "wallet.dat"), nil, 0600))

	x := New(newFakeReader()) // listwalletdir reports nothing
	x.WalletDir = walletDir

	names, err := x.discoverWallets()
	require.NoError(t, err)
	// The directory without a wallet.dat is not a wallet.
	require.Equal(t, []string{"", "wallet"}, names)
}

func TestWriteRecordDefaultWalletName(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteRecord(dir, &Record{WalletName: ""})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "default.json"), path)
}

func TestExportMissingHDInfoTolerated(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "wallet")
	delete(reader.hd, "wallet")

	rec, err := New(reader).ExportWallet("wallet")
	require.NoError(t, err)
	require.Empty(t, rec.Mnemonic)
}

func TestWriteRecordLeavesNoTempFiles(t *testing.T) {
	reader := newFakeReader()
	seedWallet(reader, "wallet")
	rec, err := New(reader).ExportWallet("wallet")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := WriteRecord(dir, rec)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "wallet.json"), path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, strings.HasSuffix(entries[0].Name(), ".tmp"))

	// The file is valid JSON ending in a newline.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))
	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, rec.WalletName, decoded.WalletName)
}
