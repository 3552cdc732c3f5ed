// Package domain contains the core value types of the MEV classification
// pipeline: addresses, pairs, arbitrary-precision amounts, the action tree,
// metadata and the bundle shapes inspectors emit.
package domain

import "github.com/shopspring/decimal"

// Rational is the arbitrary-precision type used for every price, amount and
// weight in the pipeline. It converts to float64 only where values leave the
// system: profit_usd/bribe_usd on a BundleHeader and CexDexData.PricesPrice.
type Rational = decimal.Decimal

// RationalZero is the additive identity.
func RationalZero() Rational { return decimal.Zero }

// RationalOne is the multiplicative identity.
func RationalOne() Rational { return decimal.NewFromInt(1) }

// RationalFromFloat builds a Rational from a float64: when parsing
// reference-data JSON, and wherever a float64 input (fee-rate constants,
// exponential weights) enters a computation.
func RationalFromFloat(f float64) Rational { return decimal.NewFromFloat(f) }

// RationalFromInt builds a Rational from an int64.
func RationalFromInt(i int64) Rational { return decimal.NewFromInt(i) }
