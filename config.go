// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dashpay/regtestgen/gen"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultBlocks      = 200
	defaultWallets     = 1
	defaultDashdEnvVar = "REGTESTGEN_DASHD"
	defaultLogLevel    = "info"
	defaultLogFilename = "regtestgen.log"
)

var (
	regtestgenHomeDir = btcutil.AppDataDir("regtestgen", false)
	defaultLogDir     = filepath.Join(regtestgenHomeDir, "logs")
	defaultOutputDir  = "datasets"
)

// config defines the configuration options for regtestgen.
//
// See loadConfig for details on the configuration load process.
type config struct {
	Blocks      int64  `long:"blocks" description:"Target chain height of the generated dataset"`
	DashdPath   string `long:"dashd-path" description:"Path to the dashd executable (falls back to the REGTESTGEN_DASHD environment variable, then PATH lookup)"`
	OutputDir   string `short:"o" long:"output-dir" description:"Directory the dataset directory is created in"`
	DataDir     string `long:"datadir" description:"Daemon data directory (default: a temporary directory)"`
	KeepDataDir bool   `long:"keep-datadir" description:"Keep the daemon data directory after the run"`
	RPCPort     int    `long:"rpcport" description:"Pin the daemon RPC port (default: first free port)"`
	Wallets     int    `long:"wallets" description:"Number of test wallets to create"`
	Seed        int64  `long:"seed" description:"Seed for deterministic wallet mnemonics"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
}

// loadConfig initializes and parses the config using command line options.
func loadConfig() (*config, error) {
	cfg := config{
		Blocks:     defaultBlocks,
		Wallets:    defaultWallets,
		OutputDir:  defaultOutputDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		fmt.Printf("regtestgen version %s\n", version())
		os.Exit(0)
	}

	if cfg.Blocks < gen.MinTargetHeight {
		return nil, fmt.Errorf("--blocks must be at least %d, got %d",
			gen.MinTargetHeight, cfg.Blocks)
	}
	if cfg.Wallets < 1 {
		return nil, fmt.Errorf("--wallets must be at least 1")
	}

	if cfg.DashdPath == "" {
		cfg.DashdPath = os.Getenv(defaultDashdEnvVar)
	}
	if cfg.DashdPath == "" {
		cfg.DashdPath = "dashd"
	}

	if !validLogLevel(cfg.DebugLevel) {
		return nil, fmt.Errorf("the specified debug level [%v] is "+
			"invalid", cfg.DebugLevel)
	}
	return &cfg, nil
}
