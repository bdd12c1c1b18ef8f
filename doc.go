// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
regtestgen generates deterministic Dash regtest datasets for wallet sync
testing.

It launches a dashd instance on a throwaway data directory, mines a chain to
an exact target height, seeds one or more HD wallets with transactions placed
to exercise SPV sync edge cases (gap-limit boundaries, compact-filter batch
boundaries, mature and immature coinbase rewards, dust, address reuse,
batched payments), exports every wallet to JSON and archives the chain data.

Usage:

	regtestgen [OPTIONS]

Application Options:

	    --blocks=       Target chain height of the generated dataset (200)
	    --dashd-path=   Path to the dashd executable
	-o, --output-dir=   Directory the dataset directory is created in
	    --datadir=      Daemon data directory (default: a temporary directory)
	    --keep-datadir  Keep the daemon data directory after the run
	    --rpcport=      Pin the daemon RPC port (default: first free port)
	    --wallets=      Number of test wallets to create (1)
	    --seed=         Seed for deterministic wallet mnemonics
	    --logdir=       Directory to log output
	-d, --debuglevel=   Logging level {trace, debug, info, warn, error, critical}
	-V, --version       Display version information and exit

Help Options:

	-h, --help          Show this help message
*/
package main
