package domain

import (
	"fmt"
	"strings"
)

// Exchange is an enum tag over the CEX venues the pricer draws trades and
// quotes from.
type Exchange int

const (
	ExchangeUnknown Exchange = iota
	ExchangeBinance
	ExchangeCoinbase
	ExchangeKraken
	ExchangeOkex
	ExchangeBybit
)

var exchangeNames = map[Exchange]string{
	ExchangeBinance:  "binance",
	ExchangeCoinbase: "coinbase",
	ExchangeKraken:   "kraken",
	ExchangeOkex:     "okex",
	ExchangeBybit:    "bybit",
}

func (e Exchange) String() string {
	if s, ok := exchangeNames[e]; ok {
		return s
	}
	return "unknown"
}

// ParseExchange resolves a case-insensitive exchange name, as read from run
// configuration's cex_exchanges list.
func ParseExchange(s string) (Exchange, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for ex, name := range exchangeNames {
		if name == lower {
			return ex, nil
		}
	}
	return ExchangeUnknown, fmt.Errorf("cex: unknown exchange %q", s)
}

// FeeClass labels a fee lookup as direct-pair or via-intermediary. Fees
// returns the same rates for both classes; the doubled fee on an
// intermediary route is applied by the caller.
type FeeClass int

const (
	FeeClassDirect FeeClass = iota
	FeeClassIndirect
)

// feeTable holds maker/taker fee rates per exchange as flat baseline
// constants — real exchanges tier fees by 30-day volume; the pipeline uses
// each venue's public baseline rate regardless of pair or class.
var feeTable = map[Exchange]struct{ maker, taker float64 }{
	ExchangeBinance:  {maker: 0.0010, taker: 0.0010},
	ExchangeCoinbase: {maker: 0.0040, taker: 0.0060},
	ExchangeKraken:   {maker: 0.0016, taker: 0.0026},
	ExchangeOkex:     {maker: 0.0008, taker: 0.0010},
	ExchangeBybit:    {maker: 0.0010, taker: 0.0010},
}

// Fees returns (maker, taker) fee rates for the exchange.
func (e Exchange) Fees(_ Pair, _ FeeClass) (maker, taker Rational) {
	f, ok := feeTable[e]
	if !ok {
		return RationalZero(), RationalZero()
	}
	return RationalFromFloat(f.maker), RationalFromFloat(f.taker)
}
