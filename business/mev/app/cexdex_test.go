package app

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// buildCexDexTree wraps each swap under a shared unclassified root node (the
// router contract call), matching the "root.head.is_unclassified" shape the
// emission filter checks — a swap is routinely several calls deep under a
// call the tree never classified as a swap/transfer/flash-loan itself.
func buildCexDexTree(t *testing.T, txHash common.Hash, swaps []domain.NormalizedSwap, info domain.TxInfo) *domain.BlockTree {
	t.Helper()
	tree := domain.NewBlockTree(info.BlockNumber)
	rootID := tree.AddNode(txHash, addr(0xF0), domain.NewUnclassifiedAction(nil), nil)
	for _, s := range swaps {
		tree.AddNode(txHash, s.Pool, domain.NewSwapAction(s), &rootID)
	}
	tree.SetTxInfo(txHash, info)
	tree.Finalize()
	return tree
}

func TestCexDexInspector_ProfitableSwapEmitsWhenRootUnclassified(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	txHash := common.HexToHash("0x10")

	// DEX leg: 1900 WETH in, 1 USDC out, so dex_price = AmountIn/AmountOut =
	// 1900 (the in/out convention bestVenueFor uses), against a CEX quote of 2000.
	swap := swapLeg(weth, usdc, "1900", "1")
	info := domain.TxInfo{
		TxHash:      txHash,
		BlockNumber: 100,
		EOA:         addr(0x01),
		GasDetails:  domain.GasDetails{GasUsed: 100_000, EffectiveGasPrice: 1_000_000_000},
	}
	tree := buildCexDexTree(t, txHash, []domain.NormalizedSwap{swap}, info)

	cex := newFakeCexQuotes()
	pair := domain.NewPair(weth, usdc).Ordered()
	cex.set(pair, domain.ExchangeBinance, 2000)

	metadata := &domain.Metadata{
		BlockNum:    100,
		EthPriceUSD: domain.RationalFromFloat(2000),
		CexQuotes:   cex,
	}

	insp := NewCexDexInspector(CexDexConfig{
		QuoteAsset: usdc,
		Exchanges:  []domain.Exchange{domain.ExchangeBinance},
	})
	bundles := insp.ProcessTree(tree, metadata)

	require.Len(t, bundles, 1)
	assert.Equal(t, domain.MevTypeCexDex, bundles[0].Header.MevType)
	assert.Greater(t, bundles[0].Header.ProfitUSD, 0.0)

	data, ok := bundles[0].Data.(domain.CexDexData)
	require.True(t, ok)
	require.Len(t, data.PricesKind, 2)
	assert.Equal(t, domain.PriceKindDex, data.PricesKind[0])
	assert.Equal(t, domain.PriceKindCex, data.PricesKind[1])
}

func TestCexDexInspector_NoVenueNoEmit(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	txHash := common.HexToHash("0x11")

	swap := swapLeg(weth, usdc, "1900", "1")
	info := domain.TxInfo{
		TxHash:      txHash,
		BlockNumber: 100,
		EOA:         addr(0x01),
		GasDetails:  domain.GasDetails{GasUsed: 100_000, EffectiveGasPrice: 1_000_000_000},
	}
	tree := buildArbTree(t, txHash, []domain.NormalizedSwap{swap}, info)

	metadata := &domain.Metadata{
		BlockNum:    100,
		EthPriceUSD: domain.RationalFromFloat(2000),
		CexQuotes:   newFakeCexQuotes(), // empty: no exchange has a quote
	}

	insp := NewCexDexInspector(CexDexConfig{
		QuoteAsset: usdc,
		Exchanges:  []domain.Exchange{domain.ExchangeBinance},
	})
	bundles := insp.ProcessTree(tree, metadata)
	assert.Empty(t, bundles)
}

func TestCexDexInspector_IndirectViaStableIntermediary(t *testing.T) {
	weth := addr(1)
	dai := addr(2)
	usdc := addr(3) // intermediary stable, not one of the swap's legs
	txHash := common.HexToHash("0x12")

	swap := swapLeg(weth, dai, "1900", "1")
	info := domain.TxInfo{
		TxHash:      txHash,
		BlockNumber: 100,
		EOA:         addr(0x01),
		GasDetails:  domain.GasDetails{GasUsed: 100_000, EffectiveGasPrice: 1_000_000_000},
	}
	tree := buildCexDexTree(t, txHash, []domain.NormalizedSwap{swap}, info)

	cex := newFakeCexQuotes()
	// No direct weth/dai quote; compose via weth/usdc * usdc/dai.
	cex.set(domain.NewPair(weth, usdc).Ordered(), domain.ExchangeBinance, 2000)
	cex.set(domain.NewPair(usdc, dai), domain.ExchangeBinance, 1)

	metadata := &domain.Metadata{
		BlockNum:    100,
		EthPriceUSD: domain.RationalFromFloat(2000),
		CexQuotes:   cex,
	}

	insp := NewCexDexInspector(CexDexConfig{
		QuoteAsset:   dai,
		Exchanges:    []domain.Exchange{domain.ExchangeBinance},
		StableAssets: []domain.Address{usdc},
	})
	bundles := insp.ProcessTree(tree, metadata)
	require.Len(t, bundles, 1, "indirect quote via stable intermediary should still produce an opportunity")
}

func TestResolveCexQuotes_PrefersDirectOverIndirect(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	stable := addr(3)

	cex := newFakeCexQuotes()
	pair := domain.NewPair(weth, usdc).Ordered()
	cex.set(pair, domain.ExchangeBinance, 2000)
	cex.set(domain.NewPair(weth, stable).Ordered(), domain.ExchangeBinance, 1999)
	cex.set(domain.NewPair(stable, usdc).Ordered(), domain.ExchangeBinance, 1)

	metadata := &domain.Metadata{CexQuotes: cex}
	candidates := resolveCexQuotes(metadata, pair, []domain.Exchange{domain.ExchangeBinance}, []domain.Address{stable})
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].direct)
}
