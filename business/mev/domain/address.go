package domain

import "github.com/ethereum/go-ethereum/common"

// Address is the 20-byte account identifier used as the primary key for
// tokens and contracts throughout the pipeline.
type Address = common.Address

// Pair is an ordered 2-tuple of addresses: (base, quote) for a CEX trade,
// (token_in, token_out) or a DEX pool's (token0, token1) depending on
// context — call sites are explicit about which.
type Pair struct {
	Token0 Address
	Token1 Address
}

// NewPair builds a Pair from two addresses, preserving the given order.
func NewPair(a, b Address) Pair {
	return Pair{Token0: a, Token1: b}
}

// Flip reverses the pair.
func (p Pair) Flip() Pair {
	return Pair{Token0: p.Token1, Token1: p.Token0}
}

// Ordered returns the pair with the numerically smaller address first. Used
// as the canonical trade-store key; call sites flip explicitly when they
// need the other orientation.
func (p Pair) Ordered() Pair {
	if bytesLess(p.Token1.Bytes(), p.Token0.Bytes()) {
		return p.Flip()
	}
	return p
}

// IsSelfPair reports whether both legs of the pair are the same address.
func (p Pair) IsSelfPair() bool {
	return p.Token0 == p.Token1
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// String renders the pair as "token0/token1" hex addresses, for logging.
func (p Pair) String() string {
	return p.Token0.Hex() + "/" + p.Token1.Hex()
}
