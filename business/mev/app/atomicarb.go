package app

import (
	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// AtomicArbConfig parameterizes the atomic-arb inspector with the run's
// quote asset and a CEX exchange set. The inspector prices tokens from DEX
// quotes only: it calls usdDeltaByAddress with useCex=false, so Exchanges is
// not consulted and a missing DEX price skips the tx.
type AtomicArbConfig struct {
	QuoteAsset domain.Address
	Exchanges  []domain.Exchange
}

// AtomicArbInspector implements C6: detects triangle and cross-pair atomic
// arbitrage — a self-contained sequence of swaps, possibly wrapped in a
// flash loan, that starts and ends at the same asset with a net USD profit
// after gas.
type AtomicArbInspector struct {
	cfg AtomicArbConfig
}

// NewAtomicArbInspector builds the inspector.
func NewAtomicArbInspector(cfg AtomicArbConfig) *AtomicArbInspector {
	return &AtomicArbInspector{cfg: cfg}
}

func (i *AtomicArbInspector) Name() domain.MevType { return domain.MevTypeAtomicArb }

// ClassifyArb implements §4.6's shape classifier over a flattened swap
// list S, returning the ArbKind the sequence belongs to.
func ClassifyArb(swaps []domain.NormalizedSwap) domain.ArbKind {
	if len(swaps) <= 1 {
		return domain.ArbLongTail
	}

	a := swaps[0].TokenIn
	z := swaps[len(swaps)-1].TokenOut

	if len(swaps) == 2 {
		if a == z && swaps[0].TokenOut == swaps[1].TokenIn {
			return domain.ArbTriangle
		}
		return domain.ArbCrossPair
	}

	if a != z {
		return domain.ArbLongTail
	}
	for i := 1; i < len(swaps); i++ {
		if swaps[i].TokenIn != swaps[i-1].TokenOut {
			return domain.ArbCrossPair
		}
	}
	return domain.ArbTriangle
}

// ProcessTree implements Inspector.
func (i *AtomicArbInspector) ProcessTree(tree *domain.BlockTree, metadata *domain.Metadata) []domain.Bundle {
	byTx := tree.CollectAll(swapTransferFlashLoanPredicate)

	var bundles []domain.Bundle
	for txHash, actions := range byTx {
		info, ok := tree.TxInfoFor(txHash)
		if !ok {
			continue
		}

		swaps := domain.FlattenActions(actions)
		kind := ClassifyArb(swaps)
		if kind == domain.ArbLongTail {
			continue
		}

		bundle, ok := i.buildBundle(info, swaps, kind, metadata)
		if !ok {
			continue
		}
		bundles = append(bundles, bundle)
	}
	return bundles
}

func (i *AtomicArbInspector) buildBundle(
	info domain.TxInfo,
	swaps []domain.NormalizedSwap,
	kind domain.ArbKind,
	metadata *domain.Metadata,
) (domain.Bundle, bool) {
	actions := make([]domain.Action, 0, len(swaps))
	for _, s := range swaps {
		actions = append(actions, domain.NewSwapAction(s))
	}
	deltas := calculateTokenDeltas(actions)

	usdDeltas, ok := usdDeltaByAddress(info.TxHash, deltas, metadata, i.cfg.QuoteAsset, i.cfg.Exchanges, domain.PriceAtAverage, false)
	if !ok {
		return domain.Bundle{}, false
	}

	revUSD := domain.RationalZero()
	for _, v := range usdDeltas {
		revUSD = revUSD.Add(v)
	}

	gasUsedUSD := metadata.GetGasPriceUSD(info.GasDetails.GasPaid())
	profit := revUSD.Sub(gasUsedUSD)
	if !profit.IsPositive() {
		return domain.Bundle{}, false
	}

	header := buildBundleHeader(info, profit, gasUsedUSD, usdDeltas, i.cfg.QuoteAsset, domain.MevTypeAtomicArb)
	data := domain.AtomicArbData{
		TxHash:     info.TxHash,
		GasDetails: info.GasDetails,
		Swaps:      swaps,
		Kind:       kind,
	}
	return domain.Bundle{Header: header, Data: data}, true
}
