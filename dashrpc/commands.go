// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashrpc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// WalletInfo is the subset of the getwalletinfo result used by callers.
type WalletInfo struct {
	WalletName  string  `json:"walletname"`
	Balance     float64 `json:"balance"`
	TxCount     int64   `json:"txcount"`
	KeyPoolSize int64   `json:"keypoolsize"`
}

// AddressInfo is the subset of the getaddressinfo result used by callers.
// HDKeyPath carries the BIP32 derivation path of the address, e.g.
// "m/44'/1'/0'/0/7".
type AddressInfo struct {
	Address   string `json:"address"`
	IsMine    bool   `json:"ismine"`
	IsChange  bool   `json:"ischange"`
	HDKeyPath string `json:"hdkeypath"`
	Label     string `json:"label"`
}

// HDInfo is the dumphdinfo result: the HD seed material of a wallet.
type HDInfo struct {
	HDSeed             string `json:"hdseed"`
	Mnemonic           string `json:"mnemonic"`
	MnemonicPassphrase string `json:"mnemonicpassphrase"`
}

// Unspent is one entry of the listunspent result.  Amount is in whole DASH,
// as reported on the wire.
type Unspent struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Address       string  `json:"address"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
	Spendable     bool    `json:"spendable"`
}

// WalletTx is one entry of the listtransactions result.
type WalletTx struct {
	TxID          string  `json:"txid"`
	Address       string  `json:"address"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	Label         string  `json:"label"`
	Confirmations int64   `json:"confirmations"`
	BlockHash     string  `json:"blockhash"`
	BlockHeight   int64   `json:"blockheight"`
	BlockIndex    int64   `json:"blockindex"`
	Time          int64   `json:"time"`
}

// TxInput identifies an outpoint to spend in createrawtransaction.
type TxInput struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// GetTransactionResult is the subset of the gettransaction result used by
// callers.
type GetTransactionResult struct {
	TxID          string  `json:"txid"`
	Amount        float64 `json:"amount"`
	Confirmations int64   `json:"confirmations"`
	BlockHash     string  `json:"blockhash"`
	BlockHeight   int64   `json:"blockheight"`
	Time          int64   `json:"time"`
	Hex           string  `json:"hex"`
}

// GetBlockCount returns the current chain height.  Read-only; safe for the
// caller to retry.
func (c *Client) GetBlockCount() (int64, error) {
	var count int64
	err := c.call("", "getblockcount", nil, &count)
	return count, err
}

// GetBestBlockHash returns the hash of the chain tip.
func (c *Client) GetBestBlockHash() (*chainhash.Hash, error) {
	var hashStr string
	if err := c.call("", "getbestblockhash", nil, &hashStr); err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(hashStr)
}

// Ping checks daemon liveness via getblockcount, which also fails while the
// daemon is still warming up.  Used for readiness polling.
func (c *Client) Ping() error {
	_, err := c.GetBlockCount()
	return err
}

// Stop asks the daemon to shut down gracefully.
func (c *Client) Stop() error {
	return c.call("", "stop", nil, nil)
}

// CreateWallet creates and loads a new wallet.  The daemon generates the
// wallet's HD seed itself; use CreateBlankWallet plus UpgradeToHD when the
// mnemonic must be supplied by the caller.
func (c *Client) CreateWallet(name string) error {
	return c.call("", "createwallet", []interface{}{name}, nil)
}

// CreateBlankWallet creates and loads a wallet without any keys or HD seed.
func (c *Client) CreateBlankWallet(name string) error {
	// createwallet "wallet_name" disable_private_keys blank
	return c.call("", "createwallet", []interface{}{name, false, true}, nil)
}

// UpgradeToHD upgrades a (blank) wallet to HD, deriving its seed from the
// given BIP39 mnemonic.
func (c *Client) UpgradeToHD(wallet, mnemonic string) error {
	return c.call(wallet, "upgradetohd", []interface{}{mnemonic}, nil)
}

// LoadWallet loads a wallet from the daemon's wallet directory.
func (c *Client) LoadWallet(name string) error {
	return c.call("", "loadwallet", []interface{}{name}, nil)
}

// UnloadWallet unloads a loaded wallet.
func (c *Client) UnloadWallet(name string) error {
	return c.call("", "unloadwallet", []interface{}{name}, nil)
}

// ListWallets returns the names of the currently loaded wallets.
func (c *Client) ListWallets() ([]string, error) {
	var names []string
	err := c.call("", "listwallets", nil, &names)
	return names, err
}

// ListWalletDir returns the names of all wallets present in the daemon's
// wallet directory, loaded or not.
func (c *Client) ListWalletDir() ([]string, error) {
	var result struct {
		Wallets []struct {
			Name string `json:"name"`
		} `json:"wallets"`
	}
	if err := c.call("", "listwalletdir", nil, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Wallets))
	for _, w := range result.Wallets {
		names = append(names, w.Name)
	}
	return names, nil
}

// GetWalletInfo returns state info for the given wallet.
func (c *Client) GetWalletInfo(wallet string) (*WalletInfo, error) {
	info := new(WalletInfo)
	if err := c.call(wallet, "getwalletinfo", nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// DumpHDInfo returns the HD seed material (including the mnemonic) of the
// given wallet.
func (c *Client) DumpHDInfo(wallet string) (*HDInfo, error) {
	info := new(HDInfo)
	if err := c.call(wallet, "dumphdinfo", nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetNewAddress derives the next external address of the given wallet,
// tagged with label.
func (c *Client) GetNewAddress(wallet, label string) (string, error) {
	var addr string
	err := c.call(wallet, "getnewaddress", []interface{}{label}, &addr)
	return addr, err
}

// GetAddressInfo returns wallet info about the given address, including its
// HD derivation path.
func (c *Client) GetAddressInfo(wallet, address string) (*AddressInfo, error) {
	info := new(AddressInfo)
	if err := c.call(wallet, "getaddressinfo", []interface{}{address}, info); err != nil {
		return nil, err
	}
	return info, nil
}

// GenerateToAddress mines numBlocks blocks paying the coinbase to address
// and returns the hashes of the mined blocks.  Mutating; never retried.
func (c *Client) GenerateToAddress(numBlocks int64, address string) ([]*chainhash.Hash, error) {
	if numBlocks < 0 {
		return nil, fmt.Errorf("%w: negative block count %d",
			ErrInvalidParam, numBlocks)
	}
	var hashStrs []string
	err := c.call("", "generatetoaddress", []interface{}{numBlocks, address},
		&hashStrs)
	if err != nil {
		return nil, err
	}
	hashes := make([]*chainhash.Hash, len(hashStrs))
	for i, s := range hashStrs {
		h, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

// SendToAddress sends amount from the given wallet to address and returns
// the transaction id.  Mutating; never retried.
func (c *Client) SendToAddress(wallet, address string, amount btcutil.Amount) (*chainhash.Hash, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount %v",
			ErrInvalidParam, amount)
	}
	var txidStr string
	err := c.call(wallet, "sendtoaddress",
		[]interface{}{address, amount.ToBTC()}, &txidStr)
	if err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(txidStr)
}

// SendMany sends to multiple addresses in a single transaction from the
// given wallet and returns the transaction id.  Mutating; never retried.
func (c *Client) SendMany(wallet string, amounts map[string]btcutil.Amount) (*chainhash.Hash, error) {
	if len(amounts) == 0 {
		return nil, fmt.Errorf("%w: empty recipient set", ErrInvalidParam)
	}
	recipients := make(map[string]float64, len(amounts))
	for addr, amount := range amounts {
		if amount <= 0 {
			return nil, fmt.Errorf("%w: non-positive amount %v for %s",
				ErrInvalidParam, amount, addr)
		}
		recipients[addr] = amount.ToBTC()
	}
	var txidStr string
	err := c.call(wallet, "sendmany", []interface{}{"", recipients}, &txidStr)
	if err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(txidStr)
}

// ListUnspent returns the UTXOs of the given wallet with confirmation count
// within [minConf, maxConf].  Read-only.
func (c *Client) ListUnspent(wallet string, minConf, maxConf int64) ([]Unspent, error) {
	if minConf < 0 || maxConf < 0 {
		return nil, fmt.Errorf("%w: negative confirmation bound",
			ErrInvalidParam)
	}
	var utxos []Unspent
	err := c.call(wallet, "listunspent", []interface{}{minConf, maxConf},
		&utxos)
	return utxos, err
}

// ListTransactions returns up to count entries of the wallet's transaction
// history, including watch-only entries.  Read-only.
func (c *Client) ListTransactions(wallet string, count int64) ([]WalletTx, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidParam,
			count)
	}
	var txs []WalletTx
	err := c.call(wallet, "listtransactions",
		[]interface{}{"*", count, 0, true}, &txs)
	return txs, err
}

// GetTransaction returns the wallet's view of the given transaction.
func (c *Client) GetTransaction(wallet string, txid *chainhash.Hash) (*GetTransactionResult, error) {
	result := new(GetTransactionResult)
	err := c.call(wallet, "gettransaction", []interface{}{txid.String()},
		result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateRawTransaction builds an unsigned raw transaction spending the given
// inputs into the given outputs.
func (c *Client) CreateRawTransaction(inputs []TxInput, outputs map[string]btcutil.Amount) (string, error) {
	outs := make(map[string]float64, len(outputs))
	for addr, amount := range outputs {
		if amount <= 0 {
			return "", fmt.Errorf("%w: non-positive amount %v for %s",
				ErrInvalidParam, amount, addr)
		}
		outs[addr] = amount.ToBTC()
	}
	var rawTx string
	err := c.call("", "createrawtransaction", []interface{}{inputs, outs},
		&rawTx)
	return rawTx, err
}

// SignRawTransactionWithWallet signs rawTx with the keys of the given wallet
// and returns the signed hex along with whether signing is complete.
func (c *Client) SignRawTransactionWithWallet(wallet, rawTx string) (string, bool, error) {
	var result struct {
		Hex      string `json:"hex"`
		Complete bool   `json:"complete"`
	}
	err := c.call(wallet, "signrawtransactionwithwallet",
		[]interface{}{rawTx}, &result)
	if err != nil {
		return "", false, err
	}
	return result.Hex, result.Complete, nil
}

// SendRawTransaction broadcasts a signed raw transaction and returns its
// transaction id.  Mutating; never retried.
func (c *Client) SendRawTransaction(rawTx string) (*chainhash.Hash, error) {
	var txidStr string
	err := c.call("", "sendrawtransaction", []interface{}{rawTx}, &txidStr)
	if err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(txidStr)
}
