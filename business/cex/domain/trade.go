package domain

import mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"

// Side is the taker side of a trade print.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// Direction tags which orientation of a pair produced a trade result: the
// pricer queries pair as given first, and only flips to query pair.Flip()
// when the original orientation yields zero trades. Buy marks a flipped
// query, Sell the original orientation — downstream sign interpretation
// depends on this without inverting the accumulated price/volume figures.
type Direction int

const (
	DirectionSell Direction = iota
	DirectionBuy
)

// CexTrade is a single trade print ingested from a CEX venue. Immutable
// after ingest; trades within one (exchange, pair) slot are kept strictly
// nondecreasing by TimestampUs.
type CexTrade struct {
	TimestampUs int64 // microseconds since epoch
	Exchange    mevdomain.Exchange
	Pair        mevdomain.Pair
	Price       mevdomain.Rational // quote/base
	Amount      mevdomain.Rational // base units
	Side        Side
}
