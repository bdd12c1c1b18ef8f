// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package gen implements the wallet-sync generation strategy and the run
orchestrator.

Generation is split into two halves.  BuildPlan is pure: given a set of
Params it computes an ordered sequence of chain events (block batches to
mine, targeted sends at chosen derivation indices and heights) without
touching a daemon, so the edge-case placement logic is unit-testable and
re-running with the same Params always yields the same plan.  Executor then
replays a plan against a live daemon through the Chain interface, one
mutating call at a time, verifying the outcome of every event before moving
to the next.

The plan places transactions so that specific derivation indices land on the
wallet gap-limit boundary, specific heights land just before compact-filter
batch boundaries, and coinbase rewards are mined to a wallet address in both
the mature and immature confirmation windows.  Run ties the pieces together:
it starts a daemon, executes the plan, exports every wallet, archives the
chain data directory, and stops the daemon on every exit path.
*/
package gen
