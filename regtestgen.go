// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/dashpay/regtestgen/gen"
)

// Exit codes.  Configuration problems and generation failures are
// distinguished so wrapping scripts can tell a bad invocation from a bad
// run.
const (
	exitConfig     = 1
	exitGeneration = 2
)

// regtestgenMain is the real main function for regtestgen.  It is separated
// from main so defers run before the process exits.
func regtestgenMain(cfg *config) error {
	if err := initLogRotator(filepath.Join(cfg.LogDir,
		defaultLogFilename)); err != nil {
		return err
	}
	defer logRotator.Close()
	setLogLevels(cfg.DebugLevel)

	interrupt := interruptListener()

	params := gen.DefaultParams(cfg.Blocks)
	params.NumWallets = cfg.Wallets
	params.Seed = cfg.Seed

	mainLog.Infof("Version %s", version())
	mainLog.Infof("Generating regtest dataset: height %d, %d wallets, "+
		"seed %d", params.TargetHeight, params.NumWallets, params.Seed)

	summary, err := gen.Run(&gen.RunConfig{
		Params:      params,
		DashdPath:   cfg.DashdPath,
		DataDir:     cfg.DataDir,
		KeepDataDir: cfg.KeepDataDir,
		OutputDir:   cfg.OutputDir,
		RPCPort:     cfg.RPCPort,
		Interrupt:   interrupt,
	})
	if err != nil {
		if errors.Is(err, gen.ErrInterrupted) {
			mainLog.Warnf("Generation interrupted; daemon stopped, "+
				"dataset incomplete")
		}
		return err
	}

	mainLog.Infof("Dataset written to %s", summary.DatasetDir)
	failedExports := 0
	for _, exp := range summary.Exports {
		if exp.Err != nil {
			failedExports++
			mainLog.Errorf("  %s: export failed: %v", exp.Wallet,
				exp.Err)
			continue
		}
		mainLog.Infof("  %s: %d transactions, %d UTXOs", exp.Wallet,
			exp.TxCount, exp.UTXOCount)
	}
	if len(summary.BoundaryHeights) > 0 {
		mainLog.Infof("Filter batch boundary transactions at heights %v",
			summary.BoundaryHeights)
	}
	if failedExports > 0 {
		return fmt.Errorf("%d of %d wallets failed to export",
			failedExports, len(summary.Exports))
	}
	return nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		// go-flags already printed parse errors; print our own
		// validation failures.
		if !errors.As(err, &flagsErr) {
			mainLog.Errorf("%v", err)
		}
		os.Exit(exitConfig)
	}

	if err := regtestgenMain(cfg); err != nil {
		mainLog.Errorf("Generation failed: %v", err)
		os.Exit(exitGeneration)
	}
}
