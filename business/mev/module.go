// Package mev implements the MEV classification bounded context: the
// action tree/metadata domain model (C3-C4) and the inspector set built on
// top of it (C5-C7).
package mev

import (
	"fmt"

	cexapp "github.com/fd1az/arbitrage-bot/business/cex/app"
	cexDI "github.com/fd1az/arbitrage-bot/business/cex/di"
	mevapp "github.com/fd1az/arbitrage-bot/business/mev/app"
	mevDI "github.com/fd1az/arbitrage-bot/business/mev/di"
	domain "github.com/fd1az/arbitrage-bot/business/mev/domain"
	"github.com/fd1az/arbitrage-bot/internal/asset"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/di"
)

// Module wires the inspector set into the container: which inspectors run
// is read from run.inspectors, and every inspector shares the run's quote
// asset (resolved from run.quote_asset via the asset registry) and exchange
// set (resolved from run.cex_exchanges).
type Module struct{}

// RegisterServices registers AtomicArbInspector, CexDexInspector and the
// filtered Inspectors slice the range executor consumes.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, mevDI.AtomicArbInspector, func(sr di.ServiceRegistry) *mevapp.AtomicArbInspector {
		cfg := sr.Get("config").(*config.Config)
		return mevapp.NewAtomicArbInspector(mevapp.AtomicArbConfig{
			QuoteAsset: resolveQuoteAsset(sr),
			Exchanges:  parseExchanges(cfg.Run.CexExchanges),
		})
	})

	di.RegisterToken(c, mevDI.CexDexInspector, func(sr di.ServiceRegistry) *mevapp.CexDexInspector {
		cfg := sr.Get("config").(*config.Config)
		cexapp.RegisterStablePair(asset.AddrUSDCEthereum)
		cexapp.RegisterStablePair(asset.AddrUSDTEthereum)
		return mevapp.NewCexDexInspector(mevapp.CexDexConfig{
			QuoteAsset:   resolveQuoteAsset(sr),
			Exchanges:    parseExchanges(cfg.Run.CexExchanges),
			StableAssets: stableAssets(),
			Trades:       cexDI.GetTradeStore(sr),
			Window: cexapp.WindowConfig{
				TimeWindowBeforeUs: cfg.CexDex.TimeWindowBeforeUs,
				TimeWindowAfterUs:  cfg.CexDex.TimeWindowAfterUs,
			},
		})
	})

	di.RegisterToken(c, mevDI.Inspectors, func(sr di.ServiceRegistry) []mevapp.Inspector {
		cfg := sr.Get("config").(*config.Config)
		var inspectors []mevapp.Inspector
		for _, name := range cfg.Run.Inspectors {
			switch name {
			case "atomic_arb":
				inspectors = append(inspectors, mevDI.GetAtomicArbInspector(sr))
			case "cex_dex":
				inspectors = append(inspectors, mevDI.GetCexDexInspector(sr))
			}
		}
		return inspectors
	})

	return nil
}

// resolveQuoteAsset looks run.quote_asset (a symbol, e.g. "USDT") up in the
// shared asset registry — main.go registers both before any module's
// services are built.
func resolveQuoteAsset(sr di.ServiceRegistry) domain.Address {
	cfg := sr.Get("config").(*config.Config)
	registry := sr.Get("assetRegistry").(*asset.Registry)
	a, ok := registry.GetBySymbolAndChain(cfg.Run.QuoteAsset, asset.ChainIDEthereum)
	if !ok {
		panic(fmt.Sprintf("mev: unknown run.quote_asset symbol %q", cfg.Run.QuoteAsset))
	}
	return a.Address()
}

// stableAssets is the indirect-quote intermediary set §4.7 calls "any
// common stable" — the asset registry's well-known Ethereum-mainnet
// stablecoins.
func stableAssets() []domain.Address {
	return []domain.Address{
		asset.AddrUSDCEthereum,
		asset.AddrUSDTEthereum,
		asset.AddrDAIEthereum,
	}
}

// parseExchanges resolves run.cex_exchanges names to Exchange values,
// silently skipping any name that doesn't match a known venue.
func parseExchanges(names []string) []domain.Exchange {
	out := make([]domain.Exchange, 0, len(names))
	for _, n := range names {
		ex, err := domain.ParseExchange(n)
		if err != nil {
			continue
		}
		out = append(out, ex)
	}
	return out
}
