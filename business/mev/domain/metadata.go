package domain

import "github.com/ethereum/go-ethereum/common"

// PriceAt selects which point of a DexPriceSet's window a caller wants when
// converting a token delta to USD.
type PriceAt int

const (
	PriceAtBefore PriceAt = iota
	PriceAtAfter
	PriceAtAverage
	PriceAtLowest
	PriceAtHighest
)

// DexPriceSet is the per-tx, per-token DEX price record a Metadata carries:
// the price immediately before the transaction, immediately after, and the
// low/high seen across the transaction's trace, all already expressed in
// the run's quote asset.
type DexPriceSet struct {
	Before  Rational
	After   Rational
	Lowest  Rational
	Highest Rational
}

// At resolves one of the five PriceAt selections.
func (d DexPriceSet) At(sel PriceAt) Rational {
	switch sel {
	case PriceAtBefore:
		return d.Before
	case PriceAtAfter:
		return d.After
	case PriceAtLowest:
		return d.Lowest
	case PriceAtHighest:
		return d.Highest
	default: // PriceAtAverage
		return d.Before.Add(d.After).Div(RationalFromInt(2))
	}
}

// DexQuotes is the per-tx DEX quote table of Metadata §3: for every
// transaction in the block, the DexPriceSet of every token that transaction
// touched, priced against the run's configured quote asset.
//
// The source data model keys dex_quotes per-pair; here it is collapsed to
// per-token (each token priced directly against the quote asset) since that
// is the only shape §4.5's usd_delta_by_address ever needs — a token delta
// is converted one token at a time, never pair-at-a-time. See DESIGN.md.
type DexQuotes struct {
	byTxToken map[common.Hash]map[Address]DexPriceSet
}

// NewDexQuotes builds an empty table.
func NewDexQuotes() *DexQuotes {
	return &DexQuotes{byTxToken: make(map[common.Hash]map[Address]DexPriceSet)}
}

// Insert records the price set for token within tx.
func (d *DexQuotes) Insert(tx common.Hash, token Address, set DexPriceSet) {
	if d.byTxToken[tx] == nil {
		d.byTxToken[tx] = make(map[Address]DexPriceSet)
	}
	d.byTxToken[tx][token] = set
}

// Get returns the recorded price set for (tx, token).
func (d *DexQuotes) Get(tx common.Hash, token Address) (DexPriceSet, bool) {
	byToken, ok := d.byTxToken[tx]
	if !ok {
		return DexPriceSet{}, false
	}
	set, ok := byToken[token]
	return set, ok
}

// CexQuoteLookup is the read surface Metadata needs over the block's CEX
// quote snapshot: the midpoint quote for a pair on an exchange, respecting
// canonical pair orientation. Implemented by cex/domain.PriceMap — kept as
// an interface here (rather than importing business/cex/domain directly)
// because that package already depends on this one for Pair/Exchange/
// Rational, and a reverse import would cycle.
type CexQuoteLookup interface {
	Quote(pair Pair, ex Exchange) (Rational, bool)
}

// Metadata is the per-block enrichment bundle every inspector reads
// alongside a BlockTree: block identity, the ETH/USD reference price, the
// block's CEX quote snapshot, and its per-tx DEX quote table.
//
// The source also threads a run-lifetime CexTrades trade store through
// Metadata; here that store is a singleton shared across every block (see
// cex/app.TradeStore) and is passed to collaborators directly rather than
// duplicated into every per-block Metadata value — an adaptation recorded
// in DESIGN.md and invited by §9's note that Metadata/MetadataCombined
// collapse into one type.
type Metadata struct {
	BlockNum         uint64
	BlockTimestampUs int64
	EthPriceUSD      Rational
	CexQuotes        CexQuoteLookup
	DexQuotes        *DexQuotes
	PrivateFlow      map[common.Hash]struct{}
}

// IsPrivate reports whether txHash arrived through a private order-flow
// channel (not a public mempool) — used to temper confidence in sandwich-
// style inspectors that are out of this core's scope but is carried on
// Metadata regardless since the source always populates it here.
func (m *Metadata) IsPrivate(txHash common.Hash) bool {
	if m.PrivateFlow == nil {
		return false
	}
	_, ok := m.PrivateFlow[txHash]
	return ok
}

// GetGasPriceUSD converts a gas-paid amount in wei to USD using the
// block's ETH/USD reference price.
func (m *Metadata) GetGasPriceUSD(gasPaidWei uint64) Rational {
	weiPerEth := RationalFromFloat(1e18)
	ethAmount := RationalFromInt(int64(gasPaidWei)).Div(weiPerEth)
	return ethAmount.Mul(m.EthPriceUSD)
}
