// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gen

import (
	"github.com/btcsuite/btcd/btcutil"
)

// EventKind identifies what a chain event does when executed.
type EventKind uint8

const (
	// EventMine mines a batch of blocks to the faucet or a test wallet.
	EventMine EventKind = iota

	// EventFaucetSplit breaks the faucet balance into many equal UTXOs
	// so later sends never contend for a single coin.
	EventFaucetSplit

	// EventSend pays a test wallet address from the faucet.
	EventSend

	// EventSendMany pays several test wallet addresses from the faucet
	// in a single transaction.
	EventSendMany

	// EventSpend pays the faucet from a test wallet, exercising change
	// address derivation on the wallet side.
	EventSpend

	// EventConsolidate merges the two smallest UTXOs of a test wallet
	// into one output via a manually constructed raw transaction.
	EventConsolidate
)

// String returns a human-readable event kind name.
func (k EventKind) String() string {
	switch k {
	case EventMine:
		return "mine"
	case EventFaucetSplit:
		return "faucet-split"
	case EventSend:
		return "send"
	case EventSendMany:
		return "sendmany"
	case EventSpend:
		return "spend"
	case EventConsolidate:
		return "consolidate"
	default:
		return "unknown"
	}
}

// Address role tags attached to derivation indices that were chosen to
// exercise a specific sync edge case.  They end up in the wallet export so
// consuming test suites can find the interesting addresses without
// re-deriving the placement logic.
const (
	RoleDust           = "dust"
	RoleAddressReuse   = "address-reuse"
	RoleBatchedPayment = "batched-payment"
	RoleGapBefore      = "gap-limit-before"
	RoleGapBoundary    = "gap-limit-boundary"
	RoleGapAfter       = "gap-limit-after"
	RoleBeyondGap      = "beyond-gap"
	RoleConsolidation  = "consolidation-target"
	RoleFilterBoundary = "filter-batch-boundary"
	RolePeriodic       = "periodic"
	RoleCoinbase       = "coinbase-reward"
)

// mineToFaucet marks an EventMine whose rewards go to the faucet rather
// than a test wallet.
const mineToFaucet = -1

// SendOutput is one recipient of an EventSendMany.
type SendOutput struct {
	AddrIndex int
	Amount    btcutil.Amount
}

// ChainEvent is one step of a generation plan.  Height is the chain height
// the executor expects before running the event; only EventMine advances it.
type ChainEvent struct {
	Height int64
	Kind   EventKind

	// Blocks and MineTo apply to EventMine.  MineTo is the index of the
	// test wallet receiving the coinbase rewards, or mineToFaucet.
	Blocks int64
	MineTo int

	// Wallet is the test wallet a send targets, or the wallet spending
	// for EventSpend and EventConsolidate.
	Wallet    int
	AddrIndex int
	Amount    btcutil.Amount

	// Outputs applies to EventSendMany and is ordered by AddrIndex.
	Outputs []SendOutput

	// SplitOutputs applies to EventFaucetSplit.
	SplitOutputs int

	Note string
}

// WalletPlan describes one test wallet: its deterministic name and
// mnemonic, and the roles assigned to its derivation indices.
type WalletPlan struct {
	Name     string
	Mnemonic string

	// Roles maps derivation index to the edge-case tags planned for it.
	Roles map[int][]string
}

// Plan is a complete, ordered generation schedule.  Building it touches no
// daemon; the same Params always produce an identical plan.
type Plan struct {
	Params  Params
	Wallets []WalletPlan
	Events  []ChainEvent

	// FinalHeight is the exact height the chain reaches after the last
	// event.  It always equals Params.TargetHeight.
	FinalHeight int64

	// BoundaryHeights lists the heights at which a filter-batch boundary
	// transaction confirms (one block before each batch multiple).
	BoundaryHeights []int64
}

// edgeCaseAddresses counts the derivation indices that carry at least one
// role tag across all wallets.
func (p *Plan) edgeCaseAddresses() int {
	n := 0
	for _, wp := range p.Wallets {
		for _, roles := range wp.Roles {
			if len(roles) > 0 {
				n++
			}
		}
	}
	return n
}

// coin converts a whole-coin amount from the fixed planning tables.  The
// tables only hold representable values, so conversion cannot fail.
func coin(v float64) btcutil.Amount {
	amt, err := btcutil.NewAmount(v)
	if err != nil {
		panic(err)
	}
	return amt
}

// Fixed planning tables.  Changing these changes every generated dataset,
// so treat them as part of the output format.
var (
	// periodicIndices and periodicAmounts rotate through send targets in
	// the bulk phase, one pair per periodicInterval blocks.
	periodicIndices = []int{
		1, 4, 6, 9, 10, 13, 16, 18, 21, 23, 25, 30, 33, 36, 38,
	}
	periodicAmounts = []btcutil.Amount{
		coin(0.02), coin(0.15), coin(0.5), coin(1.0), coin(0.001),
		coin(3.0), coin(0.08), coin(0.25), coin(0.75), coin(2.0),
		coin(0.005), coin(0.4), coin(1.5), coin(0.03), coin(0.1),
	}
)

const (
	faucetSplitOutputs = 50
	dustAmount         = btcutil.Amount(1000)

	// walletCoinbaseRun is how many consecutive blocks are mined to a
	// wallet address inside the coinbase reward windows.
	walletCoinbaseRun = 5
)

// planner accumulates events while tracking the height budget.  Phases
// emit only what fits below the target, so the plan always lands exactly
// on TargetHeight.
type planner struct {
	p          Params
	height     int64
	events     []ChainEvent
	roles      []map[int][]string
	boundaries []int64
}

func (pl *planner) room(blocks int64) bool {
	return pl.height+blocks <= pl.p.TargetHeight
}

func (pl *planner) emit(ev ChainEvent) {
	ev.Height = pl.height
	pl.events = append(pl.events, ev)
}

// mine schedules blocks to the faucet, split into daemon-friendly batches.
func (pl *planner) mine(blocks int64, note string) {
	for blocks > 0 {
		batch := blocks
		if batch > maxMineBatch {
			batch = maxMineBatch
		}
		pl.emit(ChainEvent{
			Kind:   EventMine,
			Blocks: batch,
			MineTo: mineToFaucet,
			Note:   note,
		})
		pl.height += batch
		blocks -= batch
	}
}

// mineToWallet schedules blocks whose rewards pay test wallet w.
func (pl *planner) mineToWallet(w int, blocks int64, note string) {
	pl.emit(ChainEvent{
		Kind:   EventMine,
		Blocks: blocks,
		MineTo: w,
		Note:   note,
	})
	pl.height += blocks
}

func (pl *planner) addRole(w, idx int, role string) {
	for _, have := range pl.roles[w][idx] {
		if have == role {
			return
		}
	}
	pl.roles[w][idx] = append(pl.roles[w][idx], role)
}

func (pl *planner) send(w, idx int, amt btcutil.Amount, role, note string) {
	pl.emit(ChainEvent{
		Kind:      EventSend,
		Wallet:    w,
		AddrIndex: idx,
		Amount:    amt,
		Note:      note,
	})
	if role != "" {
		pl.addRole(w, idx, role)
	}
}

// sendConfirmed schedules a send plus the blocks confirming it, or nothing
// if the confirmation blocks do not fit the budget.
func (pl *planner) sendConfirmed(w, idx int, amt btcutil.Amount,
	confirm int64, role, note string) bool {

	if !pl.room(confirm) {
		return false
	}
	pl.send(w, idx, amt, role, note)
	pl.mine(confirm, note)
	return true
}

// bootstrap mines the faucet past coinbase maturity and splits its balance
// into spendable UTXOs.  validate guarantees the budget covers this phase.
func (pl *planner) bootstrap() {
	pl.mine(CoinbaseMaturity+10, "bootstrap faucet")
	pl.emit(ChainEvent{
		Kind:         EventFaucetSplit,
		SplitOutputs: faucetSplitOutputs,
		Amount:       coin(10),
		Note:         "split faucet balance",
	})
	pl.mine(1, "confirm faucet split")
}

// gapLimit funds the indices straddling the recovery lookahead window.
// This phase runs first after bootstrap so the boundary address exists even
// at the minimum target height.
func (pl *planner) gapLimit() {
	gl := pl.p.GapLimit
	pl.sendConfirmed(0, gl-1, coin(0.3), 3, RoleGapBefore,
		"below gap limit")
	pl.sendConfirmed(0, gl, coin(0.4), 3, RoleGapBoundary,
		"at gap limit")
	pl.sendConfirmed(0, gl+1, coin(0.5), 3, RoleGapAfter,
		"past gap limit")
	if pl.room(10) {
		pl.mine(10, "settle gap limit phase")
	}
}

// beyondGap funds indices a recovery scan only reaches after extending its
// window at the boundary address.
func (pl *planner) beyondGap() {
	gl := pl.p.GapLimit
	pl.sendConfirmed(0, gl+2, coin(0.6), 5, RoleBeyondGap,
		"beyond gap limit")
	pl.sendConfirmed(0, gl+5, coin(0.7), 5, RoleBeyondGap,
		"beyond gap limit")
	if pl.room(10) {
		pl.mine(10, "settle beyond-gap phase")
	}
}

// normalActivity scatters ordinary payments across low derivation indices:
// dust, varied amounts, address reuse and a batched payment.
func (pl *planner) normalActivity() {
	pl.sendConfirmed(0, 0, dustAmount, 2, RoleDust, "dust output")

	groups := [][2]SendOutput{
		{{2, coin(0.05)}, {5, coin(0.5)}},
		{{8, coin(1.0)}, {12, coin(2.5)}},
		{{15, coin(100)}, {20, coin(0.1)}},
	}
	for _, g := range groups {
		if !pl.room(2) {
			return
		}
		pl.send(0, g[0].AddrIndex, g[0].Amount, "", "varied amount")
		pl.send(0, g[1].AddrIndex, g[1].Amount, "", "varied amount")
		pl.mine(2, "confirm varied amounts")
	}

	pl.sendConfirmed(0, 5, coin(0.25), 1, RoleAddressReuse,
		"reuse funded address")

	if pl.room(1) {
		outputs := []SendOutput{
			{3, coin(0.1)}, {7, coin(0.2)}, {14, coin(0.3)},
		}
		pl.emit(ChainEvent{
			Kind:    EventSendMany,
			Wallet:  0,
			Outputs: outputs,
			Note:    "batched payment",
		})
		for _, out := range outputs {
			pl.addRole(0, out.AddrIndex, RoleBatchedPayment)
		}
		pl.mine(1, "confirm batched payment")
	}

	// Additional wallets receive a light fixed set of payments.
	for w := 1; w < pl.p.NumWallets; w++ {
		pl.sendConfirmed(w, 0, coin(1.0), 1, "", "fund extra wallet")
		pl.sendConfirmed(w, 5, coin(0.5), 1, "", "fund extra wallet")
	}

	if pl.room(10) {
		pl.mine(10, "settle normal activity")
	}
}

// variety exercises wallet-side spending: a spend back to the faucet that
// forces change derivation, and a manual consolidation of small UTXOs.
func (pl *planner) variety() {
	if pl.sendConfirmed(0, 0, coin(5.0), 1, "", "fund wallet spend") &&
		pl.room(3) {

		pl.emit(ChainEvent{
			Kind:   EventSpend,
			Wallet: 0,
			Amount: coin(1.0),
			Note:   "wallet spend with change",
		})
		pl.mine(3, "confirm wallet spend")
	}

	if pl.room(3) {
		pl.emit(ChainEvent{
			Kind:   EventConsolidate,
			Wallet: 0,
			Note:   "consolidate smallest UTXOs",
		})
		// The consolidation output lands on the next fresh external
		// index after the pre-derived range.
		pl.addRole(0, pl.p.NumAddresses, RoleConsolidation)
		pl.mine(3, "confirm consolidation")
	}

	if pl.room(10) {
		pl.mine(10, "settle variety phase")
	}
}

// bulk mines the remaining distance to the target, pausing to confirm a
// transaction one block before every filter batch boundary, to scatter
// periodic wallet activity, and to attribute coinbase rewards to wallet 0
// inside the mature and immature confirmation windows near the tip.
func (pl *planner) bulk() {
	p := pl.p
	target := p.TargetHeight

	matureStart := target - 2*CoinbaseMaturity
	matureEnd := target - CoinbaseMaturity - 1
	immatureStart := target - CoinbaseMaturity + 1

	// Heights at which a boundary transaction must confirm.
	var sendHeights []int64
	for b := p.FilterBatchSize; b-1 <= target; b += p.FilterBatchSize {
		if b-1 > pl.height {
			sendHeights = append(sendHeights, b-1)
		}
	}

	boundaryCount := 0
	periodicCount := 0
	nextPeriodic := pl.height + periodicInterval

	for pl.height < target {
		// Boundary transaction due: it confirms in the very next
		// block.
		if len(sendHeights) > 0 && pl.height == sendHeights[0]-1 {
			idx := p.boundaryAddrStart() + boundaryCount%10
			if idx >= p.NumAddresses {
				idx = p.boundaryAddrStart()
			}
			pl.send(0, idx, coin(0.01), RoleFilterBoundary,
				"filter batch boundary")
			pl.mine(1, "confirm boundary transaction")
			pl.boundaries = append(pl.boundaries, sendHeights[0])
			boundaryCount++
			sendHeights = sendHeights[1:]
			continue
		}

		// Periodic activity keeps long ranges from being empty.
		if pl.height == nextPeriodic && pl.room(1) {
			k := periodicCount % len(periodicIndices)
			idx := periodicIndices[k] % p.NumAddresses
			pl.send(0, idx, periodicAmounts[k], RolePeriodic,
				"periodic activity")
			pl.mine(1, "confirm periodic transaction")
			periodicCount++
			nextPeriodic = pl.height + periodicInterval
			continue
		}
		if pl.height >= nextPeriodic {
			nextPeriodic = pl.height + periodicInterval
		}

		// Mine up to the next height where something happens.
		next := target
		if len(sendHeights) > 0 && sendHeights[0]-1 < next {
			next = sendHeights[0] - 1
		}
		if pl.height < matureStart && matureStart < next {
			next = matureStart
		}
		if pl.height < immatureStart && immatureStart < next {
			next = immatureStart
		}
		if nextPeriodic > pl.height && nextPeriodic < next {
			next = nextPeriodic
		}
		run := next - pl.height

		switch {
		case pl.height >= matureStart && pl.height < matureEnd:
			if r := matureEnd - pl.height; r < run {
				run = r
			}
			if run > walletCoinbaseRun {
				run = walletCoinbaseRun
			}
			pl.mineToWallet(0, run, "mature wallet coinbase")
			pl.addRole(0, 0, RoleCoinbase)

		case pl.height >= immatureStart:
			if run > walletCoinbaseRun {
				run = walletCoinbaseRun
			}
			pl.mineToWallet(0, run, "immature wallet coinbase")
			pl.addRole(0, 0, RoleCoinbase)

		default:
			pl.mine(run, "advance chain")
		}
	}
}

// BuildPlan computes the full generation schedule for the given parameters.
// It is pure: no daemon interaction, and identical input yields an
// identical plan.
func BuildPlan(params Params) (*Plan, error) {
	p, err := params.validate()
	if err != nil {
		return nil, err
	}

	wallets := make([]WalletPlan, p.NumWallets)
	roles := make([]map[int][]string, p.NumWallets)
	for i := range wallets {
		name := p.walletName(i)
		mnemonic, err := walletMnemonic(p.Seed, name)
		if err != nil {
			return nil, err
		}
		roles[i] = make(map[int][]string)
		wallets[i] = WalletPlan{Name: name, Mnemonic: mnemonic}
	}

	pl := &planner{p: p, roles: roles}
	pl.bootstrap()
	pl.gapLimit()
	pl.beyondGap()
	pl.normalActivity()
	pl.variety()
	pl.bulk()

	for i := range wallets {
		wallets[i].Roles = pl.roles[i]
	}
	return &Plan{
		Params:          p,
		Wallets:         wallets,
		Events:          pl.events,
		FinalHeight:     pl.height,
		BoundaryHeights: pl.boundaries,
	}, nil
}
