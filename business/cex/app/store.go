// Package app implements the CEX-side trade store and time-window VWAP
// pricer.
package app

import (
	"sort"
	"sync"

	cexdomain "github.com/fd1az/arbitrage-bot/business/cex/domain"
	mevdomain "github.com/fd1az/arbitrage-bot/business/mev/domain"
)

// TradeStore holds, per exchange and per canonically-ordered pair, a
// time-sorted vector of trades. Read-only after Load; initialized once
// before the range executor starts.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[mevdomain.Exchange]map[mevdomain.Pair][]cexdomain.CexTrade
	// adjacency indexes, per exchange, every counterparty token a given
	// token has traded against — the basis for intermediary resolution.
	adjacency map[mevdomain.Exchange]map[mevdomain.Address]map[mevdomain.Address]struct{}
}

// NewTradeStore builds an empty store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades:    make(map[mevdomain.Exchange]map[mevdomain.Pair][]cexdomain.CexTrade),
		adjacency: make(map[mevdomain.Exchange]map[mevdomain.Address]map[mevdomain.Address]struct{}),
	}
}

// Load ingests a batch of trades (from the cex_trades reference table),
// grouping by (exchange, pair.Ordered()) and keeping each slot sorted by
// timestamp.
func (s *TradeStore) Load(trades []cexdomain.CexTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		key := t.Pair.Ordered()
		if s.trades[t.Exchange] == nil {
			s.trades[t.Exchange] = make(map[mevdomain.Pair][]cexdomain.CexTrade)
		}
		s.trades[t.Exchange][key] = append(s.trades[t.Exchange][key], t)
		s.indexAdjacency(t.Exchange, key)
	}

	for ex, byPair := range s.trades {
		for pair, ts := range byPair {
			sort.SliceStable(ts, func(i, j int) bool { return ts[i].TimestampUs < ts[j].TimestampUs })
			s.trades[ex][pair] = ts
		}
	}
}

func (s *TradeStore) indexAdjacency(ex mevdomain.Exchange, pair mevdomain.Pair) {
	if s.adjacency[ex] == nil {
		s.adjacency[ex] = make(map[mevdomain.Address]map[mevdomain.Address]struct{})
	}
	add := func(a, b mevdomain.Address) {
		if s.adjacency[ex][a] == nil {
			s.adjacency[ex][a] = make(map[mevdomain.Address]struct{})
		}
		s.adjacency[ex][a][b] = struct{}{}
	}
	add(pair.Token0, pair.Token1)
	add(pair.Token1, pair.Token0)
}

// Trades returns the time-sorted trade slice stored under the exact pair
// key given — it does NOT canonicalize via Ordered(). Load stores every
// trade under its canonical key, so a literal lookup with a non-canonical
// pair always misses; this is what lets the pricer's pair-flip retry (see
// TimeWindowTrades.getTrades) detect "this orientation has no data, try the
// other one" by a plain empty-result check.
func (s *TradeStore) Trades(ex mevdomain.Exchange, pair mevdomain.Pair) []cexdomain.CexTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPair, ok := s.trades[ex]
	if !ok {
		return nil
	}
	return byPair[pair]
}

// AnchorIndex returns the first index idx into a time-sorted trade slice
// such that trades[idx].TimestampUs >= ts (i.e. partition_point keyed on
// "timestamp < ts"). Every trade before idx is strictly earlier than ts;
// every trade at or after idx is at or later.
func AnchorIndex(trades []cexdomain.CexTrade, ts int64) int {
	return sort.Search(len(trades), func(i int) bool {
		return trades[i].TimestampUs >= ts
	})
}

// Exchanges returns every exchange the store has any data for.
func (s *TradeStore) Exchanges() []mevdomain.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mevdomain.Exchange, 0, len(s.trades))
	for ex := range s.trades {
		out = append(out, ex)
	}
	return out
}

// IntermediaryCandidates returns every address X that has traded against
// pair.Token0 on one of the given exchanges and against pair.Token1 on one
// of them (not necessarily the same exchange) — the intersection set §4.1
// defines for via-intermediary routing.
func (s *TradeStore) IntermediaryCandidates(pair mevdomain.Pair, exchanges []mevdomain.Exchange) []mevdomain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counterpartiesOf := func(tok mevdomain.Address) map[mevdomain.Address]struct{} {
		out := make(map[mevdomain.Address]struct{})
		for _, ex := range exchanges {
			adj, ok := s.adjacency[ex]
			if !ok {
				continue
			}
			for other := range adj[tok] {
				out[other] = struct{}{}
			}
		}
		return out
	}

	left := counterpartiesOf(pair.Token0)
	right := counterpartiesOf(pair.Token1)

	out := make([]mevdomain.Address, 0)
	for addr := range left {
		if addr == pair.Token0 || addr == pair.Token1 {
			continue
		}
		if _, ok := right[addr]; ok {
			out = append(out, addr)
		}
	}
	return out
}
