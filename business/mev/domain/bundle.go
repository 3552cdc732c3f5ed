package domain

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// MevType tags which inspector produced a Bundle, and therefore which
// concrete type BundleData holds.
type MevType int

const (
	MevTypeUnknown MevType = iota
	MevTypeAtomicArb
	MevTypeCexDex
	MevTypeSandwich
	MevTypeJitLiquidity
	MevTypeLiquidation
)

func (t MevType) String() string {
	switch t {
	case MevTypeAtomicArb:
		return "atomic_arb"
	case MevTypeCexDex:
		return "cex_dex"
	case MevTypeSandwich:
		return "sandwich"
	case MevTypeJitLiquidity:
		return "jit_liquidity"
	case MevTypeLiquidation:
		return "liquidation"
	default:
		return "unknown"
	}
}

// ArbKind classifies a flattened swap sequence for the atomic-arb inspector
// (§4.6). Every flattened-swap list maps to exactly one of these three.
type ArbKind int

const (
	ArbLongTail ArbKind = iota
	ArbTriangle
	ArbCrossPair
)

func (k ArbKind) String() string {
	switch k {
	case ArbTriangle:
		return "triangle"
	case ArbCrossPair:
		return "cross_pair"
	default:
		return "long_tail"
	}
}

// TokenProfits holds one amount per (profit collector, token). Insert
// replaces any prior entry; Compose merges two sets keeping the larger
// amount per (collector, token).
type TokenProfits struct {
	byCollectorToken map[Address]map[Address]Rational
}

// NewTokenProfits builds an empty set.
func NewTokenProfits() *TokenProfits {
	return &TokenProfits{byCollectorToken: make(map[Address]map[Address]Rational)}
}

// Insert records amount for (collector, token), replacing any prior entry.
func (t *TokenProfits) Insert(collector, token Address, amount Rational) {
	if t.byCollectorToken[collector] == nil {
		t.byCollectorToken[collector] = make(map[Address]Rational)
	}
	t.byCollectorToken[collector][token] = amount
}

// Get returns the recorded amount for (collector, token).
func (t *TokenProfits) Get(collector, token Address) (Rational, bool) {
	byToken, ok := t.byCollectorToken[collector]
	if !ok {
		return RationalZero(), false
	}
	amount, ok := byToken[token]
	return amount, ok
}

// tokenProfitEntry is one (collector, token, amount) row — the shape
// TokenProfits marshals to, since its internal map-of-maps carries no
// exported fields for encoding/json to walk.
type tokenProfitEntry struct {
	Collector Address  `json:"collector"`
	Token     Address  `json:"token"`
	Amount    Rational `json:"amount"`
}

// MarshalJSON flattens the map-of-maps into a row list for persistence.
func (t *TokenProfits) MarshalJSON() ([]byte, error) {
	if t == nil {
		return json.Marshal([]tokenProfitEntry{})
	}
	rows := make([]tokenProfitEntry, 0)
	for collector, byToken := range t.byCollectorToken {
		for token, amount := range byToken {
			rows = append(rows, tokenProfitEntry{Collector: collector, Token: token, Amount: amount})
		}
	}
	return json.Marshal(rows)
}

// Collectors returns every profit-collector address present.
func (t *TokenProfits) Collectors() []Address {
	out := make([]Address, 0, len(t.byCollectorToken))
	for addr := range t.byCollectorToken {
		out = append(out, addr)
	}
	return out
}

// Compose merges t and o, keeping the larger amount per (collector, token).
// Neither input is mutated.
func (t *TokenProfits) Compose(o *TokenProfits) *TokenProfits {
	merged := NewTokenProfits()
	for collector, byToken := range t.byCollectorToken {
		for token, amount := range byToken {
			merged.Insert(collector, token, amount)
		}
	}
	if o == nil {
		return merged
	}
	for collector, byToken := range o.byCollectorToken {
		for token, amount := range byToken {
			existing, ok := merged.Get(collector, token)
			if !ok || amount.GreaterThan(existing) {
				merged.Insert(collector, token, amount)
			}
		}
	}
	return merged
}

// BundleHeader is the common envelope every emitted Bundle carries,
// regardless of MevType: block/tx identity, the actors involved, and the
// externally-visible float profit/bribe figures (converted from Rational to
// float64; CexDexData.PricesPrice is the other float64 output).
type BundleHeader struct {
	BlockNumber  uint64
	TxIndex      uint64
	TxHash       common.Hash
	Eoa          Address
	MevContract  *Address
	ProfitUSD    float64
	BribeUSD     float64
	TokenProfits *TokenProfits
	MevType      MevType
}

// BundleData is the tagged-variant payload carried alongside a
// BundleHeader, one concrete type per MevType.
type BundleData interface {
	MevType() MevType
}

// AtomicArbData is the C6 payload: the flattened swap sequence and its
// classified shape.
type AtomicArbData struct {
	TxHash     common.Hash
	GasDetails GasDetails
	Swaps      []NormalizedSwap
	Kind       ArbKind
}

func (AtomicArbData) MevType() MevType { return MevTypeAtomicArb }

// PriceKind tags one entry of a CexDexData price trail as coming from the
// DEX leg or a CEX venue.
type PriceKind int

const (
	PriceKindDex PriceKind = iota
	PriceKindCex
)

// CexDexData is the C7 payload: per-swap best-venue comparisons, laid out
// as parallel interleaved slices the way the source's columnar persistence
// layer expects (one [Dex, Cex] pair of entries per swap).
type CexDexData struct {
	TxHash        common.Hash
	GasDetails    GasDetails
	Swaps         []NormalizedSwap
	PricesKind    []PriceKind // interleaved [Dex, Cex] per swap
	PricesAddress []Address   // [token_in, token_out] per swap
	PricesPrice   []float64   // interleaved [dex price, cex price] per swap
}

func (CexDexData) MevType() MevType { return MevTypeCexDex }

// Bundle is one suspicious transaction's classification result.
type Bundle struct {
	Header BundleHeader
	Data   BundleData
}
