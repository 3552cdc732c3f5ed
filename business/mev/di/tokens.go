// Package di contains dependency injection tokens for the mev context.
package di

import (
	mevapp "github.com/fd1az/arbitrage-bot/business/mev/app"
	"github.com/fd1az/arbitrage-bot/internal/di"
)

// DI tokens for the mev module.
const (
	AtomicArbInspector = "mev.AtomicArbInspector"
	CexDexInspector    = "mev.CexDexInspector"
	Inspectors         = "mev.Inspectors"
)

// GetAtomicArbInspector resolves the atomic-arb inspector (C6).
func GetAtomicArbInspector(sr di.ServiceRegistry) *mevapp.AtomicArbInspector {
	return di.MustGet[*mevapp.AtomicArbInspector](sr, AtomicArbInspector)
}

// GetCexDexInspector resolves the CEX/DEX inspector (C7).
func GetCexDexInspector(sr di.ServiceRegistry) *mevapp.CexDexInspector {
	return di.MustGet[*mevapp.CexDexInspector](sr, CexDexInspector)
}

// GetInspectors resolves the full inspector set the range executor fans
// tuples out to, filtered to whatever run.inspectors names.
func GetInspectors(sr di.ServiceRegistry) []mevapp.Inspector {
	return di.MustGet[[]mevapp.Inspector](sr, Inspectors)
}
