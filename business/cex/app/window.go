package app

import (
	"context"
	"math"

	cexdomain "github.com/fd1az/arbitrage-bot/business/cex/domain"
	mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// Decay constants and window-expansion steps, in microseconds. The
// asymmetry between PreDecay and PostDecay (|PreDecay| > |PostDecay|)
// encodes that trades printed after the block are strictly more certain
// markouts for the arbitrageur than trades printed before it.
const (
	PreDecay         = -0.0000005
	PostDecay        = -0.0000002
	StartPreTimeUs   = int64(50_000)
	StartPostTimeUs  = int64(50_000)
	PreScalingDiffUs = int64(300_000)
	TimeStepUs       = int64(10_000)

	// maxExpansionSteps is a defensive bound on the expansion loop. Given a
	// positive TimeStep and finite before/after config bounds, condition 2
	// of the expansion algorithm already guarantees termination in at most
	// (before+after)/TimeStep steps; this exists only to turn a
	// misconfigured (zero) TimeStep into a bounded loop instead of a hang.
	maxExpansionSteps = 1_000_000
)

// WindowConfig parameterizes the expansion bounds, mirroring
// internal/config's CexDexConfig.
type WindowConfig struct {
	TimeWindowBeforeUs int64
	TimeWindowAfterUs  int64
}

// TimeWindowTrades is a per-block view over a TradeStore: it knows the
// block timestamp and, for any (exchange, pair) touched during this
// block's pricing, can anchor into the sorted trade slice and run the
// window-expansion VWAP algorithm.
type TimeWindowTrades struct {
	store     *TradeStore
	blockTsUs int64
	log       logger.LoggerInterface
}

// NewTimeWindowTrades builds the per-block view.
func NewTimeWindowTrades(store *TradeStore, blockTsUs int64, log logger.LoggerInterface) *TimeWindowTrades {
	if log == nil {
		log = logger.NewNop()
	}
	return &TimeWindowTrades{store: store, blockTsUs: blockTsUs, log: log}
}

type exchangeAccumulator struct {
	vxpMaker    mevdomain.Rational
	vxpTaker    mevdomain.Rational
	volWeighted mevdomain.Rational
	volRaw      mevdomain.Rational
	minStart    int64
	maxEnd      int64
	seen        bool
}

func newExchangeAccumulator() *exchangeAccumulator {
	return &exchangeAccumulator{
		vxpMaker:    mevdomain.RationalZero(),
		vxpTaker:    mevdomain.RationalZero(),
		volWeighted: mevdomain.RationalZero(),
		volRaw:      mevdomain.RationalZero(),
	}
}

// calculateWeight implements the bi-exponential decay weighting of a trade
// at time t relative to block time b, both in microseconds.
func calculateWeight(t, b int64) mevdomain.Rational {
	var exponent float64
	if t < b {
		exponent = PreDecay * float64(b-t)
	} else {
		exponent = PostDecay * float64(t-b)
	}
	return mevdomain.RationalFromFloat(math.Exp(exponent))
}

// getTrades resolves trades for pair across exchanges, retrying with the
// flipped pair (and tagging DirectionBuy) if the original orientation
// yields nothing on every exchange.
func (t *TimeWindowTrades) getTrades(exchanges []mevdomain.Exchange, pair mevdomain.Pair) (map[mevdomain.Exchange][]cexdomain.CexTrade, cexdomain.Direction) {
	direct := t.collectTrades(exchanges, pair)
	if anyTrades(direct) {
		return direct, cexdomain.DirectionSell
	}
	flipped := t.collectTrades(exchanges, pair.Flip())
	return flipped, cexdomain.DirectionBuy
}

func (t *TimeWindowTrades) collectTrades(exchanges []mevdomain.Exchange, pair mevdomain.Pair) map[mevdomain.Exchange][]cexdomain.CexTrade {
	out := make(map[mevdomain.Exchange][]cexdomain.CexTrade, len(exchanges))
	for _, ex := range exchanges {
		out[ex] = t.store.Trades(ex, pair)
	}
	return out
}

func anyTrades(byExchange map[mevdomain.Exchange][]cexdomain.CexTrade) bool {
	for _, ts := range byExchange {
		if len(ts) > 0 {
			return true
		}
	}
	return false
}

// GetPrice is the pricer's top-level entry point: direct VWAP pricing,
// falling back to via-intermediary composition when the direct query
// fails. Returns the default unit price when pair is a self-pair.
func (t *TimeWindowTrades) GetPrice(
	ctx context.Context,
	cfg WindowConfig,
	exchanges []mevdomain.Exchange,
	pair mevdomain.Pair,
	volumeNeeded mevdomain.Rational,
	bypassVol bool,
	txHash string,
) (*mevdomain.WindowExchangePrice, error) {
	if pair.IsSelfPair() {
		p := mevdomain.DefaultWindowExchangePrice()
		return &p, nil
	}

	direct, _, err := t.GetVwapPrice(ctx, cfg, exchanges, pair, volumeNeeded, bypassVol, txHash)
	if err == nil {
		return direct, nil
	}

	via, viaErr := t.GetVwapPriceViaIntermediary(ctx, cfg, exchanges, pair, volumeNeeded, txHash)
	if viaErr != nil {
		return nil, err
	}
	return via, nil
}

// GetVwapPrice runs the direct window-expansion VWAP algorithm for pair.
func (t *TimeWindowTrades) GetVwapPrice(
	ctx context.Context,
	cfg WindowConfig,
	exchanges []mevdomain.Exchange,
	pair mevdomain.Pair,
	volumeNeeded mevdomain.Rational,
	bypassVol bool,
	txHash string,
) (*mevdomain.WindowExchangePrice, cexdomain.Direction, error) {
	byExchange, direction := t.getTrades(exchanges, pair)
	if !anyTrades(byExchange) {
		return nil, direction, apperror.New(apperror.CodeNoTradesInWindow, apperror.WithContext(pair.String()))
	}

	preOffset := StartPreTimeUs
	postOffset := StartPostTimeUs

	var (
		accs              map[mevdomain.Exchange]*exchangeAccumulator
		tradeVolumeGlobal mevdomain.Rational
	)

	for step := 0; step < maxExpansionSteps; step++ {
		windowStart := t.blockTsUs - preOffset
		windowEnd := t.blockTsUs + postOffset

		accs, tradeVolumeGlobal = t.accumulate(byExchange, pair, windowStart, windowEnd)

		if tradeVolumeGlobal.GreaterThanOrEqual(volumeNeeded) {
			break
		}
		if preOffset >= cfg.TimeWindowBeforeUs || postOffset >= cfg.TimeWindowAfterUs {
			break
		}

		postOffset += TimeStepUs
		if postOffset >= PreScalingDiffUs {
			preOffset += TimeStepUs
		}
	}

	if tradeVolumeGlobal.IsZero() {
		return nil, direction, apperror.New(apperror.CodeNoTradesInWindow, apperror.WithContext(pair.String()))
	}
	if tradeVolumeGlobal.LessThan(volumeNeeded) && !bypassVol {
		t.log.Debug(ctx, "trade_volume_insufficient",
			"pair", pair.String(), "tx_hash", txHash,
			"obtained", tradeVolumeGlobal.String(), "needed", volumeNeeded.String())
		return nil, direction, apperror.New(apperror.CodeWindowExhausted, apperror.WithContext(pair.String()))
	}

	price := aggregate(accs, pair)
	return &price, direction, nil
}

// accumulate gathers every trade falling within [windowStart, windowEnd]
// across byExchange and folds it into per-exchange weighted accumulators,
// returning the global (unweighted) traded volume used for loop
// termination.
func (t *TimeWindowTrades) accumulate(
	byExchange map[mevdomain.Exchange][]cexdomain.CexTrade,
	pair mevdomain.Pair,
	windowStart, windowEnd int64,
) (map[mevdomain.Exchange]*exchangeAccumulator, mevdomain.Rational) {
	accs := make(map[mevdomain.Exchange]*exchangeAccumulator, len(byExchange))
	global := mevdomain.RationalZero()

	for ex, trades := range byExchange {
		if len(trades) == 0 {
			continue
		}
		acc := newExchangeAccumulator()
		makerFee, takerFee := ex.Fees(pair, mevdomain.FeeClassDirect)
		oneMinusMaker := mevdomain.RationalOne().Sub(makerFee)
		oneMinusTaker := mevdomain.RationalOne().Sub(takerFee)

		lo := AnchorIndex(trades, windowStart)
		for i := lo; i < len(trades) && trades[i].TimestampUs <= windowEnd; i++ {
			tr := trades[i]
			w := calculateWeight(tr.TimestampUs, t.blockTsUs)

			acc.vxpMaker = acc.vxpMaker.Add(tr.Price.Mul(oneMinusMaker).Mul(tr.Amount).Mul(w))
			acc.vxpTaker = acc.vxpTaker.Add(tr.Price.Mul(oneMinusTaker).Mul(tr.Amount).Mul(w))
			acc.volWeighted = acc.volWeighted.Add(tr.Amount.Mul(w))
			acc.volRaw = acc.volRaw.Add(tr.Amount)
			global = global.Add(tr.Amount)

			if !acc.seen || tr.TimestampUs < acc.minStart {
				acc.minStart = tr.TimestampUs
			}
			if !acc.seen || tr.TimestampUs > acc.maxEnd {
				acc.maxEnd = tr.TimestampUs
			}
			acc.seen = true
		}
		if acc.seen {
			accs[ex] = acc
		}
	}

	return accs, global
}

// aggregate folds per-exchange accumulators into the final
// WindowExchangePrice: exchanges with zero weighted volume are skipped
// (they contributed no priceable trades), and the global price is the
// raw-volume-weighted average of the per-exchange maker/taker prices.
func aggregate(accs map[mevdomain.Exchange]*exchangeAccumulator, pair mevdomain.Pair) mevdomain.WindowExchangePrice {
	perExchange := make(map[mevdomain.Exchange]mevdomain.ExchangePath, len(accs))

	volRawGlobal := mevdomain.RationalZero()
	weightedMakerSum := mevdomain.RationalZero()
	weightedTakerSum := mevdomain.RationalZero()
	var globalStart, globalEnd int64
	first := true

	for ex, acc := range accs {
		if acc.volWeighted.IsZero() {
			continue
		}
		priceMaker := acc.vxpMaker.Div(acc.volWeighted)
		priceTaker := acc.vxpTaker.Div(acc.volWeighted)

		perExchange[ex] = mevdomain.ExchangePath{
			PriceMaker:     priceMaker,
			PriceTaker:     priceTaker,
			Volume:         acc.volRaw,
			FinalStartTime: acc.minStart,
			FinalEndTime:   acc.maxEnd,
		}

		volRawGlobal = volRawGlobal.Add(acc.volRaw)
		weightedMakerSum = weightedMakerSum.Add(priceMaker.Mul(acc.volRaw))
		weightedTakerSum = weightedTakerSum.Add(priceTaker.Mul(acc.volRaw))

		if first || acc.minStart < globalStart {
			globalStart = acc.minStart
		}
		if first || acc.maxEnd > globalEnd {
			globalEnd = acc.maxEnd
		}
		first = false
	}

	global := mevdomain.ExchangePath{Volume: volRawGlobal, FinalStartTime: globalStart, FinalEndTime: globalEnd}
	if !volRawGlobal.IsZero() {
		global.PriceMaker = weightedMakerSum.Div(volRawGlobal)
		global.PriceTaker = weightedTakerSum.Div(volRawGlobal)
	}

	return mevdomain.WindowExchangePrice{PerExchange: perExchange, Pairs: []mevdomain.Pair{pair}, Global: global}
}

// stableAddresses are exempted from the via-intermediary volume
// requirement when a composed leg is exactly (USDC, USDT) or (USDT, USDC):
// these two assets trade at effective 1:1 parity with enormous liquidity,
// so bypassing the volume floor for that leg does not materially change
// the composed price's reliability.
var stableAddresses = map[string]bool{}

// RegisterStablePair marks addr as a member of the stable-pair
// volume-bypass set (populated from well-known USDC/USDT addresses at
// startup).
func RegisterStablePair(addr mevdomain.Address) {
	stableAddresses[addr.Hex()] = true
}

func isStablePair(pair mevdomain.Pair) bool {
	return stableAddresses[pair.Token0.Hex()] && stableAddresses[pair.Token1.Hex()]
}

// GetVwapPriceViaIntermediary composes a price for pair through every
// candidate intermediary asset, returning the composition with the
// largest global maker price.
func (t *TimeWindowTrades) GetVwapPriceViaIntermediary(
	ctx context.Context,
	cfg WindowConfig,
	exchanges []mevdomain.Exchange,
	pair mevdomain.Pair,
	volumeNeeded mevdomain.Rational,
	txHash string,
) (*mevdomain.WindowExchangePrice, error) {
	candidates := t.store.IntermediaryCandidates(pair, exchanges)
	if len(candidates) == 0 {
		return nil, apperror.New(apperror.CodeNoIntermediary, apperror.WithContext(pair.String()))
	}

	var best *mevdomain.WindowExchangePrice
	for _, x := range candidates {
		leg1Pair := mevdomain.NewPair(pair.Token0, x)
		bypass1 := isStablePair(leg1Pair)
		leg1, _, err := t.GetVwapPrice(ctx, cfg, exchanges, leg1Pair, volumeNeeded, bypass1, txHash)
		if err != nil {
			continue
		}

		leg2Volume := leg1.Global.PriceMaker.Mul(volumeNeeded)
		leg2Pair := mevdomain.NewPair(x, pair.Token1)
		bypass2 := isStablePair(leg2Pair)
		leg2, _, err := t.GetVwapPrice(ctx, cfg, exchanges, leg2Pair, leg2Volume, bypass2, txHash)
		if err != nil {
			continue
		}

		composed := leg1.Mul(*leg2)
		if best == nil || composed.Global.PriceMaker.GreaterThan(best.Global.PriceMaker) {
			c := composed
			best = &c
		}
	}

	if best == nil {
		return nil, apperror.New(apperror.CodeNoIntermediary, apperror.WithContext(pair.String()))
	}
	return best, nil
}
