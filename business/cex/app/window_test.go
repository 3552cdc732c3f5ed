package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cexdomain "github.com/fd1az/arbitrage-bot/business/cex/domain"
	mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

func winAddr(b byte) mevdomain.Address {
	var a mevdomain.Address
	a[19] = b
	return a
}

// TestTimeWindowTrades_WindowExpansion covers S3: the initial
// (StartPreTimeUs, StartPostTimeUs) window has too little volume, so the
// loop must expand postOffset in TimeStepUs increments before it finds
// enough trades to satisfy volumeNeeded.
func TestTimeWindowTrades_WindowExpansion(t *testing.T) {
	weth := winAddr(1)
	usdc := winAddr(2)
	pair := mevdomain.NewPair(weth, usdc)
	blockTsUs := int64(10_000_000)

	store := NewTradeStore()
	store.Load([]cexdomain.CexTrade{
		{
			TimestampUs: blockTsUs,
			Exchange:    mevdomain.ExchangeBinance,
			Pair:        pair,
			Price:       mevdomain.RationalFromFloat(2000),
			Amount:      mevdomain.RationalFromFloat(1),
		},
		{
			// 80ms after the block: outside the 50ms initial post-window,
			// but within the 200ms cfg bound, so only reachable once the
			// loop has stepped postOffset up to 80_000us.
			TimestampUs: blockTsUs + 80_000,
			Exchange:    mevdomain.ExchangeBinance,
			Pair:        pair,
			Price:       mevdomain.RationalFromFloat(2010),
			Amount:      mevdomain.RationalFromFloat(5),
		},
	})

	tw := NewTimeWindowTrades(store, blockTsUs, nil)
	cfg := WindowConfig{TimeWindowBeforeUs: 200_000, TimeWindowAfterUs: 200_000}

	price, direction, err := tw.GetVwapPrice(
		context.Background(), cfg,
		[]mevdomain.Exchange{mevdomain.ExchangeBinance},
		pair, mevdomain.RationalFromFloat(3), false, "0xtest",
	)
	require.NoError(t, err, "expansion should eventually reach enough volume")
	assert.Equal(t, cexdomain.DirectionSell, direction, "direct orientation had data, no flip needed")

	path, ok := price.PerExchange[mevdomain.ExchangeBinance]
	require.True(t, ok)
	assert.True(t, path.Volume.GreaterThanOrEqual(mevdomain.RationalFromFloat(3)))
	assert.True(t, path.PriceTaker.GreaterThan(mevdomain.RationalZero()))
}

// TestTimeWindowTrades_WindowExhaustedInsufficientVolume covers the
// companion failure case: the window expands to its configured bound but
// never finds enough volume, so GetVwapPrice must return an error rather
// than a partial price.
func TestTimeWindowTrades_WindowExhaustedInsufficientVolume(t *testing.T) {
	weth := winAddr(1)
	usdc := winAddr(2)
	pair := mevdomain.NewPair(weth, usdc)
	blockTsUs := int64(10_000_000)

	store := NewTradeStore()
	store.Load([]cexdomain.CexTrade{
		{
			TimestampUs: blockTsUs,
			Exchange:    mevdomain.ExchangeBinance,
			Pair:        pair,
			Price:       mevdomain.RationalFromFloat(2000),
			Amount:      mevdomain.RationalFromFloat(1),
		},
	})

	tw := NewTimeWindowTrades(store, blockTsUs, nil)
	cfg := WindowConfig{TimeWindowBeforeUs: 60_000, TimeWindowAfterUs: 60_000}

	_, _, err := tw.GetVwapPrice(
		context.Background(), cfg,
		[]mevdomain.Exchange{mevdomain.ExchangeBinance},
		pair, mevdomain.RationalFromFloat(100), false, "0xtest",
	)
	assert.Error(t, err)
}

// TestTimeWindowTrades_ViaIntermediary covers S4: no direct weth/dai
// trades exist, so GetPrice must compose a price through the usdc
// intermediary using the weth/usdc and usdc/dai legs.
func TestTimeWindowTrades_ViaIntermediary(t *testing.T) {
	weth := winAddr(1)
	dai := winAddr(2)
	usdc := winAddr(3)
	blockTsUs := int64(10_000_000)

	store := NewTradeStore()
	store.Load([]cexdomain.CexTrade{
		{
			TimestampUs: blockTsUs,
			Exchange:    mevdomain.ExchangeBinance,
			Pair:        mevdomain.NewPair(weth, usdc),
			Price:       mevdomain.RationalFromFloat(2000),
			Amount:      mevdomain.RationalFromFloat(5),
		},
		{
			TimestampUs: blockTsUs,
			Exchange:    mevdomain.ExchangeBinance,
			Pair:        mevdomain.NewPair(usdc, dai),
			Price:       mevdomain.RationalFromFloat(1),
			Amount:      mevdomain.RationalFromFloat(5000),
		},
	})

	tw := NewTimeWindowTrades(store, blockTsUs, nil)
	cfg := WindowConfig{TimeWindowBeforeUs: 200_000, TimeWindowAfterUs: 200_000}
	pair := mevdomain.NewPair(weth, dai)

	price, err := tw.GetPrice(
		context.Background(), cfg,
		[]mevdomain.Exchange{mevdomain.ExchangeBinance},
		pair, mevdomain.RationalFromFloat(1), false, "0xtest",
	)
	require.NoError(t, err)
	require.NotNil(t, price)

	path, ok := price.PerExchange[mevdomain.ExchangeBinance]
	require.True(t, ok, "composed price should still carry the binance leg")
	assert.True(t, path.PriceMaker.GreaterThan(mevdomain.RationalZero()))
}

func TestTradeStore_IntermediaryCandidates(t *testing.T) {
	weth := winAddr(1)
	dai := winAddr(2)
	usdc := winAddr(3)

	store := NewTradeStore()
	store.Load([]cexdomain.CexTrade{
		{TimestampUs: 1, Exchange: mevdomain.ExchangeBinance, Pair: mevdomain.NewPair(weth, usdc), Price: mevdomain.RationalFromFloat(2000), Amount: mevdomain.RationalFromFloat(1)},
		{TimestampUs: 1, Exchange: mevdomain.ExchangeBinance, Pair: mevdomain.NewPair(usdc, dai), Price: mevdomain.RationalFromFloat(1), Amount: mevdomain.RationalFromFloat(1)},
	})

	candidates := store.IntermediaryCandidates(mevdomain.NewPair(weth, dai), []mevdomain.Exchange{mevdomain.ExchangeBinance})
	require.Len(t, candidates, 1)
	assert.Equal(t, usdc, candidates[0])
}
