// Package app holds the MEV inspector contract (C5) and the concrete
// inspectors built on top of it (C6 atomic-arb, C7 CEX/DEX): pure functions
// over a read-only (BlockTree, Metadata) pair, with no suspension points of
// their own (§5).
package app

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// Inspector is the contract every MEV pattern detector implements: a pure
// function from one block's tree and metadata to the bundles it finds.
// Implementations must not mutate tree or metadata, and must not suspend
// (no I/O, no channel receive) — the range executor relies on this to run
// inspectors concurrently over a data-parallel worker pool (§5).
type Inspector interface {
	Name() domain.MevType
	ProcessTree(tree *domain.BlockTree, metadata *domain.Metadata) []domain.Bundle
}

// swapTransferFlashLoanPredicate matches swaps, transfers and flash loans
// anywhere in a transaction's call tree (§4.6's input filter; also the
// action set C7 flattens into a swap list). The traversal always recurses —
// a swap is routinely several calls deep under an unclassified router
// contract, so stopping at the first non-matching node would hide it.
func swapTransferFlashLoanPredicate(node *domain.TreeNode) (includeSelf, recurse bool) {
	relevant := node.Data.IsSwap() || node.Data.IsTransfer() || node.Data.IsFlashLoan()
	return relevant, true
}

// calculateTokenDeltas computes, for every address touched by actions, its
// net signed per-token balance change: address -> token -> delta. Swaps and
// transfers contribute directly; flash-loan wrappers are unwrapped
// recursively so their child actions contribute too (mirroring §4.6's
// "flatten swaps, pulling swap children out of flash-loan wrappers", but
// generalized here to every contributing action kind, not swaps alone).
func calculateTokenDeltas(actions []domain.Action) map[domain.Address]map[domain.Address]domain.Rational {
	deltas := make(map[domain.Address]map[domain.Address]domain.Rational)

	add := func(addr, token domain.Address, delta domain.Rational) {
		if deltas[addr] == nil {
			deltas[addr] = make(map[domain.Address]domain.Rational)
		}
		deltas[addr][token] = deltas[addr][token].Add(delta)
	}

	var walk func(a domain.Action)
	walk = func(a domain.Action) {
		switch {
		case a.IsSwap():
			s := a.Swap
			add(s.From, s.TokenIn, s.AmountIn.Neg())
			add(s.Recipient, s.TokenOut, s.AmountOut)
		case a.IsTransfer():
			t := a.Transfer
			add(t.From, t.Token, t.Amount.Neg())
			add(t.To, t.Token, t.Amount)
		case a.IsFlashLoan():
			for _, child := range a.FlashLoan.ChildActions {
				walk(child)
			}
		case a.IsMint():
			m := a.Mint
			for i, tok := range m.Tokens {
				if i < len(m.Amounts) {
					add(m.Pool, tok, m.Amounts[i])
				}
			}
		case a.IsBurn():
			b := a.Burn
			for i, tok := range b.Tokens {
				if i < len(b.Amounts) {
					add(b.Pool, tok, b.Amounts[i].Neg())
				}
			}
		case a.IsLiquidation():
			l := a.Liquidation
			add(l.Pool, l.DebtAsset, l.DebtRepaid)
			add(l.Pool, l.CollateralAsset, l.CollateralSeized.Neg())
		}
	}

	for _, a := range actions {
		walk(a)
	}
	return deltas
}

// priceOfToken resolves one token's price in quoteAsset terms, from CEX
// quotes when useCex is set (tried against each configured exchange in
// order, first hit wins) or, failing that, from the transaction's DEX quote
// set at priceAt. The
// quote asset itself always prices at 1.
func priceOfToken(
	txHash common.Hash,
	token domain.Address,
	metadata *domain.Metadata,
	quoteAsset domain.Address,
	exchanges []domain.Exchange,
	priceAt domain.PriceAt,
	useCex bool,
) (domain.Rational, bool) {
	if token == quoteAsset {
		return domain.RationalOne(), true
	}
	if useCex && metadata.CexQuotes != nil {
		pair := domain.NewPair(token, quoteAsset)
		for _, ex := range exchanges {
			if price, ok := metadata.CexQuotes.Quote(pair, ex); ok {
				return price, true
			}
		}
	}
	if metadata.DexQuotes != nil {
		if set, ok := metadata.DexQuotes.Get(txHash, token); ok {
			return set.At(priceAt), true
		}
	}
	return domain.RationalZero(), false
}

// usdDeltaByAddress converts every address's per-token deltas into a single
// USD figure. Per §4.8, a missing price for any token involved fails the
// whole conversion (ok=false) — the caller skips the entire tx rather than
// silently omitting one token's contribution.
func usdDeltaByAddress(
	txHash common.Hash,
	deltas map[domain.Address]map[domain.Address]domain.Rational,
	metadata *domain.Metadata,
	quoteAsset domain.Address,
	exchanges []domain.Exchange,
	priceAt domain.PriceAt,
	useCex bool,
) (usd map[domain.Address]domain.Rational, ok bool) {
	usd = make(map[domain.Address]domain.Rational, len(deltas))

	for addr, byToken := range deltas {
		total := domain.RationalZero()
		for token, amount := range byToken {
			price, priced := priceOfToken(txHash, token, metadata, quoteAsset, exchanges, priceAt, useCex)
			if !priced {
				return nil, false
			}
			total = total.Add(amount.Mul(price))
		}
		usd[addr] = total
	}
	return usd, true
}

// profitCollectors returns every address with a strictly positive USD
// delta, ordered descending by that delta — §4.5's profit_collectors.
func profitCollectors(usdDeltas map[domain.Address]domain.Rational) []domain.Address {
	type kv struct {
		addr  domain.Address
		delta domain.Rational
	}
	var positives []kv
	for addr, delta := range usdDeltas {
		if delta.IsPositive() {
			positives = append(positives, kv{addr, delta})
		}
	}
	sort.Slice(positives, func(i, j int) bool {
		return positives[i].delta.GreaterThan(positives[j].delta)
	})
	out := make([]domain.Address, len(positives))
	for i, p := range positives {
		out[i] = p.addr
	}
	return out
}

// buildBundleHeader assembles a BundleHeader from the pieces every
// inspector collects: the tx info, a USD profit figure already computed as
// a Rational, the per-address USD deltas used to rank profit collectors and
// seed TokenProfits (recorded against quoteAsset, since usdDeltas is already
// quote-asset-denominated rather than broken back out per contributing
// token), and the MevType being emitted.
func buildBundleHeader(
	info domain.TxInfo,
	profitUSD domain.Rational,
	bribeUSD domain.Rational,
	usdDeltas map[domain.Address]domain.Rational,
	quoteAsset domain.Address,
	mevType domain.MevType,
) domain.BundleHeader {
	collectors := profitCollectors(usdDeltas)

	tp := domain.NewTokenProfits()
	for _, addr := range collectors {
		tp.Insert(addr, quoteAsset, usdDeltas[addr])
	}

	profitFloat, _ := profitUSD.Float64()
	bribeFloat, _ := bribeUSD.Float64()

	return domain.BundleHeader{
		BlockNumber:  info.BlockNumber,
		TxIndex:      info.TxIndex,
		TxHash:       info.TxHash,
		Eoa:          info.EOA,
		MevContract:  info.MevContract,
		ProfitUSD:    profitFloat,
		BribeUSD:     bribeFloat,
		TokenProfits: tp,
		MevType:      mevType,
	}
}
