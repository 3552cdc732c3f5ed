package domain

import mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"

// CexQuote is a point-in-time bid/ask snapshot for a pair on an exchange, as
// ingested from the cex_quotes reference table, keyed by (block, pair,
// exchange).
type CexQuote struct {
	Exchange mevdomain.Exchange
	Pair     mevdomain.Pair
	Bid      mevdomain.Rational
	Ask      mevdomain.Rational
}

// Mid returns the midpoint of bid/ask.
func (q CexQuote) Mid() mevdomain.Rational {
	return q.Bid.Add(q.Ask).Div(mevdomain.RationalFromInt(2))
}

// PriceMap indexes quotes for a single block by (pair, exchange), supplying
// Metadata.CexQuotes.
type PriceMap struct {
	byPairExchange map[mevdomain.Pair]map[mevdomain.Exchange]CexQuote
}

// NewPriceMap builds an empty PriceMap.
func NewPriceMap() *PriceMap {
	return &PriceMap{byPairExchange: make(map[mevdomain.Pair]map[mevdomain.Exchange]CexQuote)}
}

// Insert records a quote, keyed by the pair's canonical orientation.
func (m *PriceMap) Insert(q CexQuote) {
	key := q.Pair.Ordered()
	if m.byPairExchange[key] == nil {
		m.byPairExchange[key] = make(map[mevdomain.Exchange]CexQuote)
	}
	m.byPairExchange[key][q.Exchange] = q
}

// Get returns the quote for pair on exchange, if any, respecting the pair's
// canonical orientation (inverting bid/ask if the caller's pair is reversed
// relative to how it was inserted).
func (m *PriceMap) Get(pair mevdomain.Pair, ex mevdomain.Exchange) (CexQuote, bool) {
	ordered := pair.Ordered()
	byEx, ok := m.byPairExchange[ordered]
	if !ok {
		return CexQuote{}, false
	}
	q, ok := byEx[ex]
	if !ok {
		return CexQuote{}, false
	}
	if pair != q.Pair {
		return CexQuote{
			Exchange: ex,
			Pair:     pair,
			Bid:      mevdomain.RationalOne().Div(q.Ask),
			Ask:      mevdomain.RationalOne().Div(q.Bid),
		}, true
	}
	return q, true
}

// Quote implements mevdomain.CexQuoteLookup: the midpoint quote for pair on
// exchange, respecting canonical pair orientation. This is the method that
// lets *PriceMap stand in for a Metadata.CexQuotes field without
// business/mev/domain importing this package.
func (m *PriceMap) Quote(pair mevdomain.Pair, ex mevdomain.Exchange) (mevdomain.Rational, bool) {
	q, ok := m.Get(pair, ex)
	if !ok {
		return mevdomain.RationalZero(), false
	}
	return q.Mid(), true
}

// AllForPair returns every exchange quote known for pair, in its given
// orientation.
func (m *PriceMap) AllForPair(pair mevdomain.Pair) []CexQuote {
	ordered := pair.Ordered()
	byEx, ok := m.byPairExchange[ordered]
	if !ok {
		return nil
	}
	out := make([]CexQuote, 0, len(byEx))
	for ex := range byEx {
		q, _ := m.Get(pair, ex)
		out = append(out, q)
	}
	return out
}
