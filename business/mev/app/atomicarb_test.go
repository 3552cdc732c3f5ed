package app

import (
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

func swapLeg(tokenIn, tokenOut domain.Address, in, out string) domain.NormalizedSwap {
	return domain.NormalizedSwap{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  domain.RationalFromFloat(mustFloat(in)),
		AmountOut: domain.RationalFromFloat(mustFloat(out)),
		Pool:      addr(0xEE),
		From:      addr(0x01),
		Recipient: addr(0x01),
	}
}

func mustFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return f
}

func TestClassifyArb(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	dai := addr(3)

	t.Run("triangle", func(t *testing.T) {
		swaps := []domain.NormalizedSwap{
			swapLeg(weth, usdc, "1", "2000"),
			swapLeg(usdc, weth, "2000", "1.01"),
		}
		assert.Equal(t, domain.ArbTriangle, ClassifyArb(swaps))
	})

	t.Run("linked_three_legs_is_triangle", func(t *testing.T) {
		swaps := []domain.NormalizedSwap{
			swapLeg(weth, usdc, "1", "2000"),
			swapLeg(usdc, dai, "2000", "2000"),
			swapLeg(dai, weth, "2000", "1.01"),
		}
		assert.Equal(t, domain.ArbTriangle, ClassifyArb(swaps))
	})

	t.Run("broken_chain_is_cross_pair", func(t *testing.T) {
		swaps := []domain.NormalizedSwap{
			swapLeg(weth, usdc, "1", "2000"),
			swapLeg(dai, weth, "2000", "1.01"),
		}
		assert.Equal(t, domain.ArbCrossPair, ClassifyArb(swaps))
	})

	t.Run("single_swap_is_long_tail", func(t *testing.T) {
		swaps := []domain.NormalizedSwap{swapLeg(weth, usdc, "1", "2000")}
		assert.Equal(t, domain.ArbLongTail, ClassifyArb(swaps))
	})

	t.Run("two_legs_not_returning_to_start_is_cross_pair", func(t *testing.T) {
		swaps := []domain.NormalizedSwap{
			swapLeg(weth, usdc, "1", "2000"),
			swapLeg(usdc, dai, "2000", "2000"),
		}
		assert.Equal(t, domain.ArbCrossPair, ClassifyArb(swaps))
	})
}

type fakeCexQuotes struct {
	prices map[domain.Pair]map[domain.Exchange]domain.Rational
}

func newFakeCexQuotes() *fakeCexQuotes {
	return &fakeCexQuotes{prices: make(map[domain.Pair]map[domain.Exchange]domain.Rational)}
}

func (f *fakeCexQuotes) set(pair domain.Pair, ex domain.Exchange, price float64) {
	if f.prices[pair] == nil {
		f.prices[pair] = make(map[domain.Exchange]domain.Rational)
	}
	f.prices[pair][ex] = domain.RationalFromFloat(price)
}

func (f *fakeCexQuotes) Quote(pair domain.Pair, ex domain.Exchange) (domain.Rational, bool) {
	byEx, ok := f.prices[pair]
	if !ok {
		return domain.RationalZero(), false
	}
	p, ok := byEx[ex]
	return p, ok
}

func buildArbTree(t *testing.T, txHash common.Hash, swaps []domain.NormalizedSwap, info domain.TxInfo) *domain.BlockTree {
	t.Helper()
	tree := domain.NewBlockTree(info.BlockNumber)
	var parent *domain.NodeID
	for _, s := range swaps {
		id := tree.AddNode(txHash, s.Pool, domain.NewSwapAction(s), parent)
		parent = &id
	}
	tree.SetTxInfo(txHash, info)
	tree.Finalize()
	return tree
}

func TestAtomicArbInspector_ProfitableTriangleEmits(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	txHash := common.HexToHash("0x01")

	swaps := []domain.NormalizedSwap{
		swapLeg(weth, usdc, "1", "2000"),
		swapLeg(usdc, weth, "2000", "1.05"),
	}
	info := domain.TxInfo{
		TxHash:      txHash,
		BlockNumber: 100,
		EOA:         addr(0x01),
		GasDetails:  domain.GasDetails{GasUsed: 100_000, EffectiveGasPrice: 20_000_000_000},
	}
	tree := buildArbTree(t, txHash, swaps, info)

	dq := domain.NewDexQuotes()
	dq.Insert(txHash, weth, domain.DexPriceSet{
		Before:  domain.RationalFromFloat(2000),
		After:   domain.RationalFromFloat(2000),
		Lowest:  domain.RationalFromFloat(2000),
		Highest: domain.RationalFromFloat(2000),
	})
	metadata := &domain.Metadata{
		BlockNum:    100,
		EthPriceUSD: domain.RationalFromFloat(2000),
		DexQuotes:   dq,
	}

	insp := NewAtomicArbInspector(AtomicArbConfig{QuoteAsset: usdc})
	bundles := insp.ProcessTree(tree, metadata)

	require.Len(t, bundles, 1)
	assert.Equal(t, domain.MevTypeAtomicArb, bundles[0].Header.MevType)
	assert.Greater(t, bundles[0].Header.ProfitUSD, 0.0)

	data, ok := bundles[0].Data.(domain.AtomicArbData)
	require.True(t, ok)
	assert.Equal(t, domain.ArbTriangle, data.Kind)
}

func TestAtomicArbInspector_UnprofitableDoesNotEmit(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	txHash := common.HexToHash("0x02")

	swaps := []domain.NormalizedSwap{
		swapLeg(weth, usdc, "1", "2000"),
		swapLeg(usdc, weth, "2000", "0.99"),
	}
	info := domain.TxInfo{
		TxHash:      txHash,
		BlockNumber: 100,
		EOA:         addr(0x01),
		GasDetails:  domain.GasDetails{GasUsed: 100_000, EffectiveGasPrice: 20_000_000_000},
	}
	tree := buildArbTree(t, txHash, swaps, info)

	dq := domain.NewDexQuotes()
	dq.Insert(txHash, weth, domain.DexPriceSet{
		Before:  domain.RationalFromFloat(2000),
		After:   domain.RationalFromFloat(2000),
		Lowest:  domain.RationalFromFloat(2000),
		Highest: domain.RationalFromFloat(2000),
	})
	metadata := &domain.Metadata{
		BlockNum:    100,
		EthPriceUSD: domain.RationalFromFloat(2000),
		DexQuotes:   dq,
	}

	insp := NewAtomicArbInspector(AtomicArbConfig{QuoteAsset: usdc})
	bundles := insp.ProcessTree(tree, metadata)
	assert.Empty(t, bundles)
}

func TestAtomicArbInspector_MissingPriceSkipsTx(t *testing.T) {
	weth := addr(1)
	usdc := addr(2)
	unknownToken := addr(9)
	txHash := common.HexToHash("0x03")

	swaps := []domain.NormalizedSwap{
		swapLeg(weth, unknownToken, "1", "2000"),
		swapLeg(unknownToken, weth, "2000", "1.05"),
	}
	info := domain.TxInfo{
		TxHash:      txHash,
		BlockNumber: 100,
		EOA:         addr(0x01),
		GasDetails:  domain.GasDetails{GasUsed: 100_000, EffectiveGasPrice: 20_000_000_000},
	}
	tree := buildArbTree(t, txHash, swaps, info)

	metadata := &domain.Metadata{
		BlockNum:    100,
		EthPriceUSD: domain.RationalFromFloat(2000),
	}

	insp := NewAtomicArbInspector(AtomicArbConfig{QuoteAsset: usdc})
	bundles := insp.ProcessTree(tree, metadata)
	assert.Empty(t, bundles, "no DEX or CEX price for unknownToken, tx must be skipped")
}
