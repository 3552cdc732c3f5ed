package app

import (
	"context"
	"sort"

	cexapp "github.com/fd1az/arbitrage-bot/business/cex/app"
	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// CexDexConfig parameterizes the CEX/DEX inspector.
type CexDexConfig struct {
	QuoteAsset domain.Address
	Exchanges  []domain.Exchange
	// StableAssets is the set of addresses usable as an indirect-quote
	// intermediary (§4.7's "quote-via-intermediary (any common stable)").
	StableAssets []domain.Address
	// KnownCexDexContracts lets the emission filter's
	// "root.head.is_known_cex_dex_contract" clause fire for addresses the
	// operator has pre-labeled as known CEX/DEX arbitrage contracts — the
	// address-labeling table itself is the out-of-scope KV store; this is
	// just the read surface the inspector consults.
	KnownCexDexContracts map[domain.Address]bool
	// Trades is the run-lifetime raw trade store (C1). When the block's
	// static CexQuotes snapshot has no quote for a pair on any configured
	// exchange, the inspector falls back to pricing it directly off Trades
	// via the time-window VWAP pricer (C2) — the dataflow §1 describes as
	// "C1-C3 are consulted by C2/C5/C7". Nil disables the fallback (the
	// inspector then behaves exactly as when only a static snapshot exists).
	Trades *cexapp.TradeStore
	// Window bounds the VWAP pricer's window-expansion, mirroring
	// internal/config's CexDexConfig.TimeWindowBeforeUs/AfterUs.
	Window cexapp.WindowConfig
}

// CexDexInspector implements C7: matches each DEX swap in a tx to the best
// available CEX venue and sums per-swap max profit, net of gas.
type CexDexInspector struct {
	cfg CexDexConfig
}

// NewCexDexInspector builds the inspector.
func NewCexDexInspector(cfg CexDexConfig) *CexDexInspector {
	return &CexDexInspector{cfg: cfg}
}

func (i *CexDexInspector) Name() domain.MevType { return domain.MevTypeCexDex }

// cexCandidate is one venue's quote for a swap's pair, with whether it was
// resolved directly or via a stable intermediary.
type cexCandidate struct {
	exchange domain.Exchange
	price    domain.Rational
	direct   bool
}

// resolveCexQuotes gathers, for pair, the quote on every configured
// exchange: a direct quote where available, else a quote composed through
// any common stable intermediary.
func resolveCexQuotes(metadata *domain.Metadata, pair domain.Pair, exchanges []domain.Exchange, stables []domain.Address) []cexCandidate {
	if metadata.CexQuotes == nil {
		return nil
	}
	sorted := append([]domain.Exchange(nil), exchanges...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })

	var out []cexCandidate
	for _, ex := range sorted {
		if price, ok := metadata.CexQuotes.Quote(pair, ex); ok {
			out = append(out, cexCandidate{exchange: ex, price: price, direct: true})
			continue
		}
		for _, stable := range stables {
			if stable == pair.Token0 || stable == pair.Token1 {
				continue
			}
			leg1, ok1 := metadata.CexQuotes.Quote(domain.NewPair(pair.Token0, stable), ex)
			leg2, ok2 := metadata.CexQuotes.Quote(domain.NewPair(stable, pair.Token1), ex)
			if ok1 && ok2 {
				out = append(out, cexCandidate{exchange: ex, price: leg1.Mul(leg2), direct: false})
				break
			}
		}
	}
	return out
}

// swapOpportunity is one swap's best-venue comparison result.
type swapOpportunity struct {
	swap     domain.NormalizedSwap
	exchange domain.Exchange
	dexPrice domain.Rational
	cexPrice domain.Rational
	direct   bool
	profit   domain.Rational
}

// resolveCexQuotesFromWindow falls back to the time-window VWAP pricer (C2)
// over the raw trade store (C1) when the block's static CEX quote snapshot
// has no quote for pair on any configured exchange. tw is nil when no
// trade store was wired in, in which case this is a no-op.
func resolveCexQuotesFromWindow(
	tw *cexapp.TimeWindowTrades,
	windowCfg cexapp.WindowConfig,
	exchanges []domain.Exchange,
	pair domain.Pair,
	volumeNeeded domain.Rational,
	txHash string,
) []cexCandidate {
	if tw == nil {
		return nil
	}
	price, err := tw.GetPrice(context.Background(), windowCfg, exchanges, pair, volumeNeeded, false, txHash)
	if err != nil {
		return nil
	}
	out := make([]cexCandidate, 0, len(price.PerExchange))
	for ex, path := range price.PerExchange {
		out = append(out, cexCandidate{exchange: ex, price: path.PriceTaker, direct: true})
	}
	return out
}

// bestVenueFor computes, for one swap, the CEX venue with the largest
// profit per §4.7 steps 2-4.
func bestVenueFor(swap domain.NormalizedSwap, metadata *domain.Metadata, cfg CexDexConfig, tw *cexapp.TimeWindowTrades, txHash string) (swapOpportunity, bool) {
	if swap.AmountOut.IsZero() {
		return swapOpportunity{}, false
	}
	dexPrice := swap.AmountIn.Div(swap.AmountOut)
	pair := domain.NewPair(swap.TokenIn, swap.TokenOut).Ordered()

	candidates := resolveCexQuotes(metadata, pair, cfg.Exchanges, cfg.StableAssets)
	if len(candidates) == 0 {
		candidates = resolveCexQuotesFromWindow(tw, cfg.Window, cfg.Exchanges, pair, swap.AmountOut, txHash)
	}
	if len(candidates) == 0 {
		return swapOpportunity{}, false
	}

	sellAmount := swap.AmountOut
	var best *swapOpportunity
	for _, c := range candidates {
		_, takerFee := c.exchange.Fees(pair, feeClassOf(c.direct))
		feeUnits := domain.RationalFromInt(1)
		if !c.direct {
			feeUnits = domain.RationalFromInt(2)
		}
		delta := c.price.Sub(dexPrice)
		profit := delta.Mul(sellAmount).Sub(sellAmount.Mul(takerFee).Mul(feeUnits))

		if best == nil || profit.GreaterThan(best.profit) {
			best = &swapOpportunity{
				swap:     swap,
				exchange: c.exchange,
				dexPrice: dexPrice,
				cexPrice: c.price,
				direct:   c.direct,
				profit:   profit,
			}
		}
	}
	if best == nil {
		return swapOpportunity{}, false
	}
	return *best, true
}

func feeClassOf(direct bool) domain.FeeClass {
	if direct {
		return domain.FeeClassDirect
	}
	return domain.FeeClassIndirect
}

// ProcessTree implements Inspector.
func (i *CexDexInspector) ProcessTree(tree *domain.BlockTree, metadata *domain.Metadata) []domain.Bundle {
	byTx := tree.CollectAll(swapTransferFlashLoanPredicate)

	var tw *cexapp.TimeWindowTrades
	if i.cfg.Trades != nil {
		tw = cexapp.NewTimeWindowTrades(i.cfg.Trades, metadata.BlockTimestampUs, nil)
	}

	var bundles []domain.Bundle
	for txHash, actions := range byTx {
		info, ok := tree.TxInfoFor(txHash)
		if !ok {
			continue
		}
		swaps := domain.FlattenActions(actions)
		if len(swaps) == 0 {
			continue
		}

		bundle, ok := i.buildBundle(tree, info, swaps, metadata, tw)
		if !ok {
			continue
		}
		bundles = append(bundles, bundle)
	}
	return bundles
}

func (i *CexDexInspector) buildBundle(
	tree *domain.BlockTree,
	info domain.TxInfo,
	swaps []domain.NormalizedSwap,
	metadata *domain.Metadata,
	tw *cexapp.TimeWindowTrades,
) (domain.Bundle, bool) {
	txHash := info.TxHash.Hex()
	var opportunities []swapOpportunity
	for _, s := range swaps {
		opp, ok := bestVenueFor(s, metadata, i.cfg, tw, txHash)
		if !ok {
			continue // §4.8: no qualifying exchange, this swap contributes no opportunity
		}
		opportunities = append(opportunities, opp)
	}
	if len(opportunities) == 0 {
		return domain.Bundle{}, false
	}

	totalArbPreGas := domain.RationalZero()
	for _, o := range opportunities {
		totalArbPreGas = totalArbPreGas.Add(o.profit)
	}
	gasCost := metadata.GetGasPriceUSD(info.GasDetails.GasPaid())
	pnl := totalArbPreGas.Sub(gasCost)

	root, hasRoot := tree.RootAction(info.TxHash)
	rootUnclassified := hasRoot && root.IsUnclassified()
	knownContract := info.MevContract != nil && i.cfg.KnownCexDexContracts[*info.MevContract]

	emit := (pnl.IsPositive() && rootUnclassified) ||
		(info.GasDetails.CoinbaseTransfer != nil && rootUnclassified) ||
		knownContract
	if !emit {
		return domain.Bundle{}, false
	}

	usdDeltas := map[domain.Address]domain.Rational{info.EOA: pnl}
	header := buildBundleHeader(info, pnl, gasCost, usdDeltas, i.cfg.QuoteAsset, domain.MevTypeCexDex)

	data := domain.CexDexData{
		TxHash:        info.TxHash,
		GasDetails:    info.GasDetails,
		Swaps:         swaps,
		PricesKind:    make([]domain.PriceKind, 0, len(opportunities)*2),
		PricesAddress: make([]domain.Address, 0, len(opportunities)*2),
		PricesPrice:   make([]float64, 0, len(opportunities)*2),
	}
	for _, o := range opportunities {
		dexF, _ := o.dexPrice.Float64()
		cexF, _ := o.cexPrice.Float64()

		data.PricesKind = append(data.PricesKind, domain.PriceKindDex, domain.PriceKindCex)
		data.PricesAddress = append(data.PricesAddress, o.swap.TokenIn, o.swap.TokenOut)
		data.PricesPrice = append(data.PricesPrice, dexF, cexF)
	}

	return domain.Bundle{Header: header, Data: data}, true
}
