// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletexport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dashpay/regtestgen/dashrpc"
)

// txHistoryLimit caps how many history entries are requested per wallet.
// Generated datasets stay well below this.
const txHistoryLimit = 100000

// WalletReader is the daemon surface needed to export wallets.
// *dashrpc.Client satisfies it.
type WalletReader interface {
	ListWalletDir() ([]string, error)
	ListWallets() ([]string, error)
	LoadWallet(name string) error
	DumpHDInfo(wallet string) (*dashrpc.HDInfo, error)
	ListTransactions(wallet string, count int64) ([]dashrpc.WalletTx, error)
	ListUnspent(wallet string, minConf, maxConf int64) ([]dashrpc.Unspent, error)
}

var _ WalletReader = (*dashrpc.Client)(nil)

// AddressRecord is one derived address with the edge-case roles assigned to
// its derivation index.
type AddressRecord struct {
	Address string   `json:"address"`
	Index   int      `json:"index"`
	Roles   []string `json:"roles,omitempty"`
}

// TransactionRecord is one wallet history entry.
type TransactionRecord struct {
	TxID          string  `json:"txid"`
	Address       string  `json:"address,omitempty"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	Label         string  `json:"label,omitempty"`
	Confirmations int64   `json:"confirmations"`
	BlockHash     string  `json:"blockhash,omitempty"`
	BlockHeight   int64   `json:"blockheight"`
	BlockIndex    int64   `json:"blockindex"`
	Time          int64   `json:"time"`
}

// UTXORecord is one unspent output.
type UTXORecord struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Address       string  `json:"address"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
	Spendable     bool    `json:"spendable"`
}

// Record is the complete exported state of one wallet.
type Record struct {
	WalletName             string              `json:"wallet_name"`
	Mnemonic               string              `json:"mnemonic,omitempty"`
	Balance                float64             `json:"balance"`
	TransactionCount       int                 `json:"transaction_count"`
	UniqueTransactionCount int                 `json:"unique_transaction_count"`
	UTXOCount              int                 `json:"utxo_count"`
	Addresses              []AddressRecord     `json:"addresses,omitempty"`
	Transactions           []TransactionRecord `json:"transactions"`
	UTXOs                  []UTXORecord        `json:"utxos"`
}

// Result reports the outcome of exporting one wallet.  Err is set when that
// wallet failed; other wallets are unaffected.
type Result struct {
	Wallet    string
	Path      string
	TxCount   int
	UTXOCount int
	Err       error
}

// Exporter gathers wallet state through a WalletReader and writes one JSON
// file per wallet.
type Exporter struct {
	reader WalletReader

	// WalletDir, when set, is the daemon's on-disk wallets directory
	// (<datadir>/regtest/wallets).  It is used as a discovery fallback
	// for daemons whose listwalletdir reports nothing.
	WalletDir string

	// addrs carries the pre-derived addresses and role tags per wallet,
	// supplied by the generation run.  Wallets without an entry export
	// with no address list.
	addrs map[string][]AddressRecord
}

// New returns an exporter reading from the given daemon surface.
func New(reader WalletReader) *Exporter {
	return &Exporter{
		reader: reader,
		addrs:  make(map[string][]AddressRecord),
	}
}

// SetAddresses attaches the derived address list (with roles) to include in
// the named wallet's export.
func (x *Exporter) SetAddresses(wallet string, recs []AddressRecord) {
	x.addrs[wallet] = recs
}

// ensureLoaded makes sure the wallet is loaded in the daemon, translating a
// missing wallet into a WalletNotFoundError.
func (x *Exporter) ensureLoaded(wallet string) error {
	loaded, err := x.reader.ListWallets()
	if err != nil {
		return err
	}
	for _, name := range loaded {
		if name == wallet {
			return nil
		}
	}

	err = x.reader.LoadWallet(wallet)
	switch {
	case err == nil, dashrpc.IsWalletAlreadyLoaded(err):
		return nil
	case dashrpc.IsWalletNotFound(err):
		return &WalletNotFoundError{Wallet: wallet}
	default:
		return err
	}
}

// ExportWallet gathers the full state of one wallet.  The wallet is loaded
// on demand.
func (x *Exporter) ExportWallet(wallet string) (*Record, error) {
	if err := x.ensureLoaded(wallet); err != nil {
		return nil, err
	}

	rec := &Record{
		WalletName: wallet,
		Addresses:  x.addrs[wallet],
	}

	// Not every wallet has a mnemonic (the faucet wallet may predate HD
	// upgrade), so a dump failure only drops the field.
	if hd, err := x.reader.DumpHDInfo(wallet); err == nil {
		rec.Mnemonic = hd.Mnemonic
	} else {
		log.Warnf("Wallet %s: no HD info exported: %v", wallet, err)
	}

	txs, err := x.reader.ListTransactions(wallet, txHistoryLimit)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		rec.Transactions = append(rec.Transactions, TransactionRecord{
			TxID:          tx.TxID,
			Address:       tx.Address,
			Category:      tx.Category,
			Amount:        tx.Amount,
			Label:         tx.Label,
			Confirmations: tx.Confirmations,
			BlockHash:     tx.BlockHash,
			BlockHeight:   tx.BlockHeight,
			BlockIndex:    tx.BlockIndex,
			Time:          tx.Time,
		})
		unique[tx.TxID] = struct{}{}
	}
	// Stable ordering so re-exports of the same state are byte identical.
	sort.Slice(rec.Transactions, func(i, j int) bool {
		a, b := rec.Transactions[i], rec.Transactions[j]
		if a.BlockHeight != b.BlockHeight {
			return a.BlockHeight < b.BlockHeight
		}
		if a.BlockIndex != b.BlockIndex {
			return a.BlockIndex < b.BlockIndex
		}
		if a.TxID != b.TxID {
			return a.TxID < b.TxID
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Address < b.Address
	})
	rec.TransactionCount = len(rec.Transactions)
	rec.UniqueTransactionCount = len(unique)

	unspent, err := x.reader.ListUnspent(wallet, 0, 9999999)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(unspent))
	var balance btcutil.Amount
	for _, u := range unspent {
		key := fmt.Sprintf("%s:%d", u.TxID, u.Vout)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rec.UTXOs = append(rec.UTXOs, UTXORecord{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Address:       u.Address,
			Amount:        u.Amount,
			Confirmations: u.Confirmations,
			Spendable:     u.Spendable,
		})
		amt, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return nil, err
		}
		balance += amt
	}
	sort.Slice(rec.UTXOs, func(i, j int) bool {
		if rec.UTXOs[i].TxID != rec.UTXOs[j].TxID {
			return rec.UTXOs[i].TxID < rec.UTXOs[j].TxID
		}
		return rec.UTXOs[i].Vout < rec.UTXOs[j].Vout
	})
	rec.UTXOCount = len(rec.UTXOs)
	rec.Balance = balance.ToBTC()

	return rec, nil
}

// WriteRecord serializes a record to <dir>/<wallet>.json atomically.
func WriteRecord(dir string, rec *Record) (string, error) {
	// The daemon's unnamed default wallet still needs a usable file name.
	name := rec.WalletName
	if name == "" {
		name = "default"
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	data = append(data, '\n')

	// Temp file in the same directory so the rename is atomic.
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", &WriteError{Path: path, Err: err}
	}
	return path, nil
}

// discoverWallets lists the daemon's wallets, falling back to scanning the
// on-disk wallets directory when the RPC reports none.
func (x *Exporter) discoverWallets() ([]string, error) {
	names, err := x.reader.ListWalletDir()
	if err == nil && len(names) > 0 {
		sort.Strings(names)
		return names, nil
	}
	if x.WalletDir == "" {
		return names, err
	}
	if err != nil {
		log.Warnf("listwalletdir failed, scanning %s: %v", x.WalletDir,
			err)
	}

	entries, derr := os.ReadDir(x.WalletDir)
	if derr != nil {
		if err != nil {
			return nil, err
		}
		return nil, derr
	}
	names = names[:0]
	for _, entry := range entries {
		if !entry.IsDir() {
			// A bare wallet.dat is the unnamed default wallet.
			if entry.Name() == "wallet.dat" {
				names = append(names, "")
			}
			continue
		}
		if _, serr := os.Stat(filepath.Join(x.WalletDir, entry.Name(),
			"wallet.dat")); serr == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ExportAll exports the named wallets into dir, one JSON file each.  A nil
// wallet list means every wallet the daemon knows about.  Wallets fail
// independently; the per-wallet outcome is in the returned results and the
// error covers only setup failures.
func (x *Exporter) ExportAll(dir string, wallets []string) ([]Result, error) {
	if wallets == nil {
		var err error
		wallets, err = x.discoverWallets()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(wallets))
	for _, wallet := range wallets {
		res := Result{Wallet: wallet}

		rec, err := x.ExportWallet(wallet)
		if err != nil {
			res.Err = err
			log.Errorf("Export of wallet %s failed: %v", wallet, err)
			results = append(results, res)
			continue
		}

		path, err := WriteRecord(dir, rec)
		if err != nil {
			res.Err = err
			log.Errorf("Export of wallet %s failed: %v", wallet, err)
			results = append(results, res)
			continue
		}

		res.Path = path
		res.TxCount = rec.TransactionCount
		res.UTXOCount = rec.UTXOCount
		results = append(results, res)
		log.Infof("Exported wallet %s: %d transactions, %d UTXOs (%s)",
			wallet, rec.TransactionCount, rec.UTXOCount, path)
	}
	return results, nil
}
