package domain

// ExchangePath is one priced leg of a VWAP query: maker/taker prices,
// volume weighted-accumulated over a time window, and the window's
// (possibly asymmetric) final bounds.
type ExchangePath struct {
	PriceMaker     Rational
	PriceTaker     Rational
	Volume         Rational
	FinalStartTime int64 // microseconds since epoch
	FinalEndTime   int64
}

// Mul composes two legs of a priced path: prices multiply, volume is the
// minimum of the two (a composed quote can move no more volume than its
// thinnest leg), and the window bounds take the union (min start, max end).
func (p ExchangePath) Mul(o ExchangePath) ExchangePath {
	vol := p.Volume
	if o.Volume.LessThan(vol) {
		vol = o.Volume
	}
	start := p.FinalStartTime
	if o.FinalStartTime < start {
		start = o.FinalStartTime
	}
	end := p.FinalEndTime
	if o.FinalEndTime > end {
		end = o.FinalEndTime
	}
	return ExchangePath{
		PriceMaker:     p.PriceMaker.Mul(o.PriceMaker),
		PriceTaker:     p.PriceTaker.Mul(o.PriceTaker),
		Volume:         vol,
		FinalStartTime: start,
		FinalEndTime:   end,
	}
}

// WindowExchangePrice is the full result of a time-window VWAP query: a
// per-exchange breakdown plus the volume-weighted aggregate across all
// exchanges that contributed.
type WindowExchangePrice struct {
	PerExchange map[Exchange]ExchangePath
	Pairs       []Pair
	Global      ExchangePath
}

// Mul composes two WindowExchangePrice legs (e.g. via-intermediary
// pricing): per-exchange paths are inner-joined on the exchange key and
// multiplied, pair lists are concatenated, and the global path multiplies.
func (w WindowExchangePrice) Mul(o WindowExchangePrice) WindowExchangePrice {
	merged := make(map[Exchange]ExchangePath, len(w.PerExchange))
	for ex, path := range w.PerExchange {
		if otherPath, ok := o.PerExchange[ex]; ok {
			merged[ex] = path.Mul(otherPath)
		}
	}

	pairs := make([]Pair, 0, len(w.Pairs)+len(o.Pairs))
	pairs = append(pairs, w.Pairs...)
	pairs = append(pairs, o.Pairs...)

	return WindowExchangePrice{
		PerExchange: merged,
		Pairs:       pairs,
		Global:      w.Global.Mul(o.Global),
	}
}

// DefaultWindowExchangePrice is returned when pair.Token0 == pair.Token1
// (get_price's self-pair shortcut): a unit price with zero volume.
func DefaultWindowExchangePrice() WindowExchangePrice {
	one := RationalOne()
	return WindowExchangePrice{
		PerExchange: map[Exchange]ExchangePath{},
		Pairs:       nil,
		Global: ExchangePath{
			PriceMaker: one,
			PriceTaker: one,
			Volume:     RationalZero(),
		},
	}
}
