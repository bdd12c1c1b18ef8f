// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// exportwallets re-exports the wallets of an existing regtest data
// directory without regenerating the chain.  It starts a daemon on the
// given data directory, exports every wallet it finds and stops the daemon
// again.  The operation is read-only, so exporting the same data directory
// twice yields byte-identical files.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"

	"github.com/dashpay/regtestgen/dashdctrl"
	"github.com/dashpay/regtestgen/dashrpc"
	"github.com/dashpay/regtestgen/walletexport"
)

type config struct {
	DashdPath  string `long:"dashd-path" description:"Path to the dashd executable (falls back to the REGTESTGEN_DASHD environment variable, then PATH lookup)"`
	OutputDir  string `short:"o" long:"output-dir" description:"Directory the wallet JSON files are written into"`
	RPCPort    int    `long:"rpcport" description:"Pin the daemon RPC port (default: first free port)"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	Args struct {
		DataDir string `positional-arg-name:"datadir" description:"Existing daemon data directory"`
	} `positional-args:"yes" required:"yes"`
}

func run() error {
	cfg := config{
		OutputDir:  "wallet-exports",
		DebugLevel: "info",
	}
	if _, err := flags.Parse(&cfg); err != nil {
		return err
	}
	if cfg.DashdPath == "" {
		cfg.DashdPath = os.Getenv("REGTESTGEN_DASHD")
	}
	if cfg.DashdPath == "" {
		cfg.DashdPath = "dashd"
	}
	if _, err := os.Stat(cfg.Args.DataDir); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}

	backend := btclog.NewBackend(os.Stdout)
	level, ok := btclog.LevelFromString(cfg.DebugLevel)
	if !ok {
		return fmt.Errorf("the specified debug level [%v] is invalid",
			cfg.DebugLevel)
	}
	for _, use := range []func(btclog.Logger){
		dashrpc.UseLogger, dashdctrl.UseLogger, walletexport.UseLogger,
	} {
		logger := backend.Logger("XPRT")
		logger.SetLevel(level)
		use(logger)
	}

	return dashdctrl.WithInstance(&dashdctrl.Config{
		ExePath: cfg.DashdPath,
		DataDir: cfg.Args.DataDir,
		RPCPort: cfg.RPCPort,
	}, func(ctrl *dashdctrl.Controller) error {
		exporter := walletexport.New(ctrl.RPCClient())
		exporter.WalletDir = filepath.Join(cfg.Args.DataDir, "regtest",
			"wallets")
		results, err := exporter.ExportAll(cfg.OutputDir, nil)
		if err != nil {
			return err
		}

		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", res.Wallet,
					res.Err)
				continue
			}
			fmt.Printf("%s: %d transactions, %d UTXOs -> %s\n",
				res.Wallet, res.TxCount, res.UTXOCount, res.Path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d wallets failed to export",
				failed, len(results))
		}
		return nil
	})
}

func main() {
	if err := run(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "exportwallets: %v\n", err)
		os.Exit(1)
	}
}
