// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dashpay/regtestgen/dashdctrl"
	"github.com/dashpay/regtestgen/dashrpc"
	"github.com/dashpay/regtestgen/walletexport"
)

// RunConfig configures a full generation run.
type RunConfig struct {
	// Params drives the plan.  See DefaultParams.
	Params Params

	// DashdPath is the daemon executable to launch.
	DashdPath string

	// DataDir is the daemon data directory.  Empty means a temporary
	// directory, removed after the run unless KeepDataDir is set.
	DataDir     string
	KeepDataDir bool

	// OutputDir is where the dataset directory is created.  The dataset
	// lands in <OutputDir>/regtest-<height>/ and replaces any previous
	// dataset of the same height.
	OutputDir string

	// RPCPort pins the daemon RPC port.  Zero picks a free one.
	RPCPort int

	// Interrupt, when closed, aborts the run between events.  The daemon
	// is stopped before Run returns.
	Interrupt <-chan struct{}

	// DaemonStdout and DaemonStderr receive the daemon's output when
	// non-nil.
	DaemonStdout io.Writer
	DaemonStderr io.Writer
}

// Summary reports what a completed run produced.
type Summary struct {
	DatasetDir           string
	FinalHeight          int64
	BlocksMined          int64
	TransactionsCreated  int64
	WalletCoinbaseBlocks int64
	Wallets              int
	EdgeCaseAddresses    int
	BoundaryHeights      []int64
	Exports              []walletexport.Result
	Elapsed              time.Duration
}

// chainConn is the full RPC surface a run drives: the executor's chain plus
// the exporter's reader.  *dashrpc.Client satisfies both.
type chainConn interface {
	Chain
	walletexport.WalletReader
}

var _ chainConn = (*dashrpc.Client)(nil)

// daemonHandle is the slice of the controller a run uses once the daemon is
// up.
type daemonHandle interface {
	Stop() error
	Err() error
}

// Run executes a complete generation: build the plan, launch a daemon on a
// fresh or given data directory, replay the plan, export every wallet and
// archive the chain data.  The daemon is stopped on every exit path.  Any
// previously generated dataset of the same height is replaced only after
// the new one is complete; a failed run leaves it untouched.
func Run(cfg *RunConfig) (*Summary, error) {
	start := time.Now()

	plan, err := BuildPlan(cfg.Params)
	if err != nil {
		return nil, err
	}
	log.Infof("Plan ready: %d events, %d wallets, final height %d",
		len(plan.Events), len(plan.Wallets), plan.FinalHeight)
	log.Tracef("Plan parameters: %v", spew.Sdump(plan.Params))

	dataDir := cfg.DataDir
	tempData := false
	if dataDir == "" {
		dataDir, err = os.MkdirTemp("", "regtestgen-")
		if err != nil {
			return nil, err
		}
		tempData = true
	}
	defer func() {
		if tempData && !cfg.KeepDataDir {
			os.RemoveAll(dataDir)
		}
	}()

	ctrl, err := dashdctrl.New(&dashdctrl.Config{
		ExePath: cfg.DashdPath,
		DataDir: dataDir,
		RPCPort: cfg.RPCPort,
		Stdout:  cfg.DaemonStdout,
		Stderr:  cfg.DaemonStderr,
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Start(); err != nil {
		return nil, err
	}
	// runGeneration stops the daemon before archiving; this covers the
	// failure paths (Stop is idempotent).
	defer ctrl.Stop()
	log.Infof("Daemon ready at %s (datadir %s)", ctrl.RPCAddress(), dataDir)

	return runGeneration(cfg, plan, ctrl, ctrl.RPCClient(), dataDir, start)
}

// runGeneration replays the plan, exports the wallets and assembles the
// dataset.  The dataset is staged beside its final location and renamed
// into place only once complete, so earlier datasets survive failed runs.
// Per-wallet export failures are reported in the summary, not fatal.
func runGeneration(cfg *RunConfig, plan *Plan, d daemonHandle, conn chainConn,
	dataDir string, start time.Time) (*Summary, error) {

	exec := NewExecutor(conn, plan, cfg.Interrupt)
	if err := exec.Run(); err != nil {
		// A dead daemon shows up as connection errors; report the
		// crash instead of the symptom.
		if cerr := d.Err(); cerr != nil && dashrpc.IsConnectionError(err) {
			return nil, cerr
		}
		return nil, err
	}

	datasetDir := filepath.Join(cfg.OutputDir,
		fmt.Sprintf("regtest-%d", plan.FinalHeight))
	stageDir := datasetDir + ".tmp"
	if err := os.RemoveAll(stageDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stageDir, 0700); err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(stageDir)
		}
	}()

	exporter := walletexport.New(conn)
	names := make([]string, 0, len(plan.Wallets)+1)
	for i, wp := range plan.Wallets {
		exporter.SetAddresses(wp.Name, addressRecords(plan, exec, i))
		names = append(names, wp.Name)
	}
	names = append(names, plan.Params.FaucetWallet)

	results, err := exporter.ExportAll(filepath.Join(stageDir, "wallets"),
		names)
	if err != nil {
		return nil, err
	}
	exportFailures := 0
	for _, res := range results {
		if res.Err != nil {
			exportFailures++
		}
	}

	// Stop the daemon before archiving so the chain state on disk is
	// fully flushed.
	if err := d.Stop(); err != nil {
		return nil, err
	}

	if err := copyTree(filepath.Join(dataDir, "regtest"),
		filepath.Join(stageDir, "regtest")); err != nil {
		return nil, fmt.Errorf("archive chain data: %w", err)
	}

	// Replace any previous dataset only now that the staged one is
	// complete.
	if err := os.RemoveAll(datasetDir); err != nil {
		return nil, err
	}
	if err := os.Rename(stageDir, datasetDir); err != nil {
		return nil, err
	}
	committed = true

	stats := exec.Stats()
	summary := &Summary{
		DatasetDir:           datasetDir,
		FinalHeight:          stats.FinalHeight,
		BlocksMined:          stats.BlocksMined,
		TransactionsCreated:  stats.TransactionsCreated,
		WalletCoinbaseBlocks: stats.WalletCoinbaseBlocks,
		Wallets:              len(plan.Wallets),
		EdgeCaseAddresses:    plan.edgeCaseAddresses(),
		BoundaryHeights:      plan.BoundaryHeights,
		Exports:              results,
		Elapsed:              time.Since(start),
	}
	if exportFailures > 0 {
		log.Warnf("%d of %d wallets failed to export; see summary",
			exportFailures, len(results))
	}
	log.Infof("Dataset complete: height %d, %d blocks mined, %d "+
		"transactions, %s", summary.FinalHeight, summary.BlocksMined,
		summary.TransactionsCreated, summary.Elapsed.Round(time.Second))
	return summary, nil
}

// addressRecords pairs the executor's derived addresses with the plan's
// role tags for wallet w, roles sorted for stable output.
func addressRecords(plan *Plan, exec *Executor, w int) []walletexport.AddressRecord {
	addrs := exec.Addresses(w)
	recs := make([]walletexport.AddressRecord, len(addrs))
	for i, addr := range addrs {
		var roles []string
		if planned := plan.Wallets[w].Roles[i]; len(planned) > 0 {
			roles = append([]string(nil), planned...)
			sort.Strings(roles)
		}
		recs[i] = walletexport.AddressRecord{
			Address: addr,
			Index:   i,
			Roles:   roles,
		}
	}
	return recs
}

// copyTree recursively copies the directory at src to dst, preserving file
// modes.  Non-regular files (sockets left by the daemon) are skipped.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0700)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(target,
			os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
